package InputParameters

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	"go.uber.org/multierr"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/geometry"
	"github.com/notargets/weircfd/mesh"
)

var (
	ErrUnknownCase       = errors.New("unknown case")
	ErrInvalidParameters = errors.New("invalid case parameters")
)

// CaseParameters is everything that distinguishes one weir case from another.
// Values are validated once and then passed by value.
type CaseParameters struct {
	Title  string     `json:"Title"`
	Dim    int        `json:"Dim"`
	L0     float64    `json:"L0"`
	Origin [3]float64 `json:"Origin"`

	// Mesh levels: the initial uniform grid, then the adaptation band
	BaseLevel int     `json:"BaseLevel"`
	MinLevel  int     `json:"MinLevel"`
	MaxLevel  int     `json:"MaxLevel"`
	BulkX     float64 `json:"BulkX"`    // cells with x < BulkX start at MinLevel
	WallBand  float64 `json:"WallBand"` // cells within this distance of a solid start at MaxLevel

	Obstacles        []geometry.ObstacleSpec `json:"Obstacles"`
	CleanupThreshold float64                 `json:"CleanupThreshold"`

	// Initial liquid region x < FillX, y < FillH
	FillX float64 `json:"FillX"`
	FillH float64 `json:"FillH"`

	Rho1    float64    `json:"Rho1"`
	Rho2    float64    `json:"Rho2"`
	Mu1     float64    `json:"Mu1"`
	Mu2     float64    `json:"Mu2"`
	Sigma   float64    `json:"Sigma"`
	Gravity [3]float64 `json:"Gravity"`

	InflowU       float64 `json:"InflowU"` // zero means a closed left wall
	InflowH       float64 `json:"InflowH"`
	RampTime      float64 `json:"RampTime"`
	InflowProfile string  `json:"InflowProfile"`

	// Domain boundaries that are no slip walls, the other closed ones slip
	NoSlipWalls []string `json:"NoSlipWalls"`

	OneWayOutlet  bool    `json:"OneWayOutlet"`
	OutletClamp   bool    `json:"OutletClamp"`
	Reservoir     bool    `json:"Reservoir"`
	ReservoirX    float64 `json:"ReservoirX"`
	ReservoirDamp float64 `json:"ReservoirDamp"`

	Adapt            bool      `json:"Adapt"`
	RefineFields     []string  `json:"RefineFields"`
	RefineThresholds []float64 `json:"RefineThresholds"`
	AdaptEvery       int       `json:"AdaptEvery"`
	AdaptSkip        int       `json:"AdaptSkip"`

	CFL             float64 `json:"CFL"`
	DtMax           float64 `json:"DtMax"`
	TEnd            float64 `json:"TEnd"`
	DtOutput        float64 `json:"DtOutput"`
	DtVisualization float64 `json:"DtVisualization"`
	DtCheckpoint    float64 `json:"DtCheckpoint"`
	ProgressEvery   int     `json:"ProgressEvery"`

	TimeSeries  bool    `json:"TimeSeries"`
	HeadX       float64 `json:"HeadX"`
	DischargeX  float64 `json:"DischargeX"`
	CrestHeight float64 `json:"CrestHeight"`

	HeatMap           bool `json:"HeatMap"`
	HeatMapResolution int  `json:"HeatMapResolution"`
}

// Parse overrides the fields present in a YAML document. A document listing
// obstacles replaces the whole list.
func (cp *CaseParameters) Parse(data []byte) error {
	var keys map[string]interface{}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return err
	}
	if _, ok := keys["Obstacles"]; ok {
		cp.Obstacles = nil
	}
	return yaml.Unmarshal(data, cp)
}

func (cp CaseParameters) Marshal() ([]byte, error) {
	return yaml.Marshal(cp)
}

func (cp CaseParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", cp.Title)
	fmt.Printf("[%d]\t\t\t= Dimension\n", cp.Dim)
	fmt.Printf("[%d, %d, %d]\t\t= Base, Min, Max Level\n", cp.BaseLevel, cp.MinLevel, cp.MaxLevel)
	fmt.Printf("%8.5f\t\t= CFL\n", cp.CFL)
	fmt.Printf("%8.5f\t\t= FinalTime\n", cp.TEnd)
	fmt.Printf("%8.5f\t\t= Inflow Velocity\n", cp.InflowU)
	fmt.Printf("%8.5f\t\t= Inflow Depth\n", cp.InflowH)
	fmt.Printf("%8.5f\t\t= Inflow Ramp Time\n", cp.RampTime)
	for i, o := range cp.Obstacles {
		fmt.Printf("Obstacles[%d] = %+v\n", i, o)
	}
	for i, name := range cp.RefineFields {
		fmt.Printf("Refine[%s] = %g\n", name, cp.RefineThresholds[i])
	}
	fmt.Printf("NoSlipWalls = %v\n", cp.NoSlipWalls)
	fmt.Printf("OneWayOutlet = %v, OutletClamp = %v, Reservoir = %v\n",
		cp.OneWayOutlet, cp.OutletClamp, cp.Reservoir)
}

func (cp CaseParameters) Profile() string {
	if cp.InflowProfile == "" {
		return "uniform"
	}
	return strings.ToLower(cp.InflowProfile)
}

// RefineFieldIDs maps the refinement field names onto engine fields
func (cp CaseParameters) RefineFieldIDs() (ids []engine.FieldID) {
	for _, name := range cp.RefineFields {
		ids = append(ids, engine.FieldID(name))
	}
	return
}

// NoSlipTags resolves the no slip wall names, aliases included, to domain
// boundaries
func (cp CaseParameters) NoSlipTags() (tags []mesh.Tag, err error) {
	for _, name := range cp.NoSlipWalls {
		tag, ok := mesh.ParseTag(name)
		if !ok || tag.Axis() >= cp.Dim {
			return nil, fmt.Errorf("no slip wall %q is not a boundary of a %dD domain", name, cp.Dim)
		}
		tags = append(tags, tag)
	}
	return
}

func (cp CaseParameters) Scene() (geometry.Scene, error) {
	return geometry.FromSpecs(cp.Obstacles, cp.Dim)
}

// Validate reports every inconsistency at once
func (cp CaseParameters) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(cp.Dim == 2 || cp.Dim == 3, "dimension %d", cp.Dim)
	check(cp.L0 > 0, "domain size %g", cp.L0)
	check(cp.BaseLevel >= 0 && cp.BaseLevel <= cp.MinLevel && cp.MinLevel <= cp.MaxLevel,
		"levels base %d, min %d, max %d", cp.BaseLevel, cp.MinLevel, cp.MaxLevel)
	check(cp.MaxLevel <= 12, "max level %d", cp.MaxLevel)
	check(cp.TEnd > 0, "end time %g", cp.TEnd)
	check(cp.CFL > 0 && cp.CFL <= 1, "CFL %g", cp.CFL)
	check(cp.DtMax > 0, "maximum time step %g", cp.DtMax)
	check(cp.DtVisualization >= 0 && cp.DtCheckpoint >= 0, "negative output period")
	check(!cp.TimeSeries || cp.DtOutput > 0, "time series period %g", cp.DtOutput)
	check(!cp.TimeSeries || cp.CrestHeight > 0, "crest height %g", cp.CrestHeight)
	check(cp.InflowU == 0 || cp.InflowH > 0, "inflow depth %g", cp.InflowH)
	switch cp.Profile() {
	case "uniform", "parabolic":
	default:
		check(false, "inflow profile %q", cp.InflowProfile)
	}
	check(!cp.Reservoir || cp.ReservoirDamp >= 0, "reservoir damping %g", cp.ReservoirDamp)
	if cp.Adapt {
		check(len(cp.RefineFields) == len(cp.RefineThresholds),
			"%d refinement fields with %d thresholds", len(cp.RefineFields), len(cp.RefineThresholds))
		check(cp.AdaptEvery >= 1, "adaptation cadence %d", cp.AdaptEvery)
		known := make(map[engine.FieldID]bool)
		for _, id := range []engine.FieldID{engine.Phase, engine.Pressure, engine.VelX, engine.VelY, engine.VelZ} {
			known[id] = true
		}
		for _, id := range cp.RefineFieldIDs() {
			check(known[id] && (id != engine.VelZ || cp.Dim == 3), "refinement field %q", id)
		}
	}
	check(!cp.HeatMap || cp.HeatMapResolution > 0, "heat map resolution %d", cp.HeatMapResolution)
	if _, err := cp.Scene(); err != nil {
		errs = append(errs, err)
	}
	if _, err := cp.NoSlipTags(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) != 0 {
		return fmt.Errorf("%s: %w: %v", cp.Title, ErrInvalidParameters, multierr.Combine(errs...))
	}
	return nil
}

// Case returns a fresh copy of a compiled-in case
func Case(name string) (cp CaseParameters, err error) {
	fn, ok := cases[strings.ToLower(name)]
	if !ok {
		err = fmt.Errorf("%q: %w, have %s", name, ErrUnknownCase, strings.Join(Names(), ", "))
		return
	}
	return fn(), nil
}

func Names() (names []string) {
	for name := range cases {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}
