package diagnostics

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// ReadTimeSeries loads a time series written by a Reporter
func ReadTimeSeries(path string) (samples []Sample, err error) {
	var (
		file    *os.File
		records [][]string
	)
	if file, err = os.Open(path); err != nil {
		return
	}
	defer file.Close()
	r := csv.NewReader(file)
	r.FieldsPerRecord = len(Header)
	if records, err = r.ReadAll(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for n, rec := range records {
		if n == 0 && rec[0] == Header[0] {
			continue
		}
		var v [4]float64
		for k := range v {
			if v[k], err = strconv.ParseFloat(rec[k], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, n+1, err)
			}
		}
		samples = append(samples, Sample{T: v[0], Head: v[1], Discharge: v[2], HeadOverCrest: v[3]})
	}
	return
}
