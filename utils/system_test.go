package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetMemUsage(t *testing.T) {
	s := GetMemUsage()
	assert.True(t, strings.HasPrefix(s, "heap "))
	assert.Contains(t, s, ", gc ")
}
