// Package config holds the placer's tunable settings.
//
// A [Config] is read from TOML and completed with defaults by
// [Config.ValidateAndSetDefaults]. CLI flags override individual fields
// after loading. Every default lives in this package so the CLI, the
// pipeline and tests agree on them.
//
// # File Format
//
//	alpha = 1.0
//	shared_sym_axis = false
//
//	[lambda]
//	hpwl = 1.0
//	ovl = 4.0
//
//	[solver]
//	method = "lbfgs"
//	max_iterations = 200
//
//	[init]
//	policy = "random"
//	seed = 6
//
//	[exec]
//	executor = "pool"
//	workers = 8
//
//	[cache]
//	backend = "file"
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/analogplace/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultAlpha is the smoothing coefficient of the log-sum-exp wirelength
	// and of the overlap/boundary ramps.
	DefaultAlpha = 1.0

	// DefaultLambda is the multiplier of a family without an explicit weight.
	DefaultLambda = 1.0

	// DefaultSeed seeds the initial placement.
	DefaultSeed = uint64(6)

	// DefaultStdDevRatio is the spread of the normal init policy relative to
	// the boundary size.
	DefaultStdDevRatio = 0.15

	// DefaultMaxIterations bounds the outer solver.
	DefaultMaxIterations = 200

	// DefaultGradientThreshold stops the solver when the gradient's infinity
	// norm falls below it.
	DefaultGradientThreshold = 1e-6

	// DefaultPlateauTol is the relative objective change treated as a plateau.
	DefaultPlateauTol = 1e-5

	// DefaultChunkSize is the number of operators per gradient accumulate task.
	DefaultChunkSize = 256

	// DefaultEscalateThreshold and DefaultEscalateFactor drive penalty
	// escalation when it is enabled.
	DefaultEscalateThreshold = 0.05
	DefaultEscalateFactor    = 2.0

	// DefaultCacheDir is the file cache directory below the user cache dir.
	DefaultCacheDir = "analogplace"
)

const (
	MethodLBFGS = "lbfgs"
	MethodCG    = "cg"
	MethodGD    = "gd"

	// MethodNelderMead is derivative-free; the gradient graph is skipped.
	MethodNelderMead = "neldermead"

	// MethodNone evaluates the initial placement once without iterating.
	MethodNone = "none"
)

const (
	InitRandom = "random"
	InitNormal = "normal"
)

const (
	ExecutorSerial = "serial"
	ExecutorPool   = "pool"
)

const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Methods lists the accepted solver methods.
var Methods = []string{MethodLBFGS, MethodCG, MethodGD, MethodNelderMead, MethodNone}

// =============================================================================
// Config
// =============================================================================

// Config contains every placer setting.
type Config struct {
	Alpha float64 `toml:"alpha"`
	// SharedSymAxis makes all symmetry groups share one axis variable.
	SharedSymAxis bool `toml:"shared_sym_axis"`

	Lambda   Lambdas  `toml:"lambda"`
	Solver   Solver   `toml:"solver"`
	Init     Init     `toml:"init"`
	Exec     Exec     `toml:"exec"`
	Escalate Escalate `toml:"escalate"`
	Cache    Cache    `toml:"cache"`

	validated bool
}

// Lambdas are the per-family multipliers. Zero selects DefaultLambda; list
// a family in Disable to turn it off.
type Lambdas struct {
	Hpwl    float64  `toml:"hpwl"`
	Ovl     float64  `toml:"ovl"`
	Oob     float64  `toml:"oob"`
	Asym    float64  `toml:"asym"`
	Cos     float64  `toml:"cos"`
	Disable []string `toml:"disable"`
}

// Solver configures the outer iterative driver and its stop policy.
type Solver struct {
	Method            string  `toml:"method"`
	MaxIterations     int     `toml:"max_iterations"`
	GradientThreshold float64 `toml:"gradient_threshold"`
	// PlateauWindow > 0 also stops once the objective changed less than
	// PlateauTol (relative) over that many iterations.
	PlateauWindow int     `toml:"plateau_window"`
	PlateauTol    float64 `toml:"plateau_tol"`
}

// Init configures the initial placement policy.
type Init struct {
	Policy      string  `toml:"policy"`
	Seed        uint64  `toml:"seed"`
	StdDevRatio float64 `toml:"stddev_ratio"`
}

// Exec configures task graph execution.
type Exec struct {
	Executor  string `toml:"executor"`
	Workers   int    `toml:"workers"`
	ChunkSize int    `toml:"chunk_size"`
}

// Escalate raises the overlap, boundary and asymmetry multipliers by Factor
// after an iteration whose family share of the objective exceeds Threshold.
type Escalate struct {
	Enabled   bool    `toml:"enabled"`
	Threshold float64 `toml:"threshold"`
	Factor    float64 `toml:"factor"`
}

// Cache selects where placement results are memoized.
type Cache struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
	// TTL is a duration string such as "24h"; empty keeps entries forever.
	TTL string `toml:"ttl"`
}

// Default returns a validated default configuration.
func Default() Config {
	var c Config
	_ = c.ValidateAndSetDefaults()
	return c
}

// Load reads a TOML configuration file and applies defaults.
func Load(path string) (Config, error) {
	if err := errors.ValidatePath(path); err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
	}
	if err != nil {
		return Config{}, err
	}
	return Decode(bytes.NewReader(data))
}

// Decode reads a TOML configuration and applies defaults. Unknown keys are
// rejected.
func Decode(r io.Reader) (Config, error) {
	var c Config
	md, err := toml.NewDecoder(r).Decode(&c)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	if err := c.ValidateAndSetDefaults(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ValidateAndSetDefaults fills zero fields with defaults and checks the
// result. It is idempotent.
func (c *Config) ValidateAndSetDefaults() error {
	if c.validated {
		return nil
	}
	if c.Alpha == 0 {
		c.Alpha = DefaultAlpha
	}
	if err := errors.ValidatePositive("alpha", c.Alpha); err != nil {
		return err
	}
	if err := c.Lambda.setDefaults(); err != nil {
		return err
	}
	if err := c.Solver.setDefaults(); err != nil {
		return err
	}
	if err := c.Init.setDefaults(); err != nil {
		return err
	}
	if err := c.Exec.setDefaults(); err != nil {
		return err
	}
	if err := c.Escalate.setDefaults(); err != nil {
		return err
	}
	if err := c.Cache.setDefaults(); err != nil {
		return err
	}
	c.validated = true
	return nil
}

// Invalidate marks the config for re-validation after fields were changed.
func (c *Config) Invalidate() { c.validated = false }

func (l *Lambdas) setDefaults() error {
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"lambda.hpwl", &l.Hpwl},
		{"lambda.ovl", &l.Ovl},
		{"lambda.oob", &l.Oob},
		{"lambda.asym", &l.Asym},
		{"lambda.cos", &l.Cos},
	} {
		if *f.v == 0 {
			*f.v = DefaultLambda
		}
		if err := errors.ValidateNonNegative(f.name, *f.v); err != nil {
			return err
		}
	}
	for _, name := range l.Disable {
		if err := errors.ValidateOneOf("lambda.disable", name, "hpwl", "ovl", "oob", "asym", "cos"); err != nil {
			return err
		}
	}
	return nil
}

// Of returns the effective multiplier of the family with the given short
// name, honoring Disable.
func (l Lambdas) Of(family string) float64 {
	for _, d := range l.Disable {
		if d == family {
			return 0
		}
	}
	switch family {
	case "hpwl":
		return l.Hpwl
	case "ovl":
		return l.Ovl
	case "oob":
		return l.Oob
	case "asym":
		return l.Asym
	case "cos":
		return l.Cos
	}
	return DefaultLambda
}

func (s *Solver) setDefaults() error {
	if s.Method == "" {
		s.Method = MethodLBFGS
	}
	if err := errors.ValidateOneOf("solver.method", s.Method, Methods...); err != nil {
		return err
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = DefaultMaxIterations
	}
	if s.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "solver.max_iterations must be positive, got %d", s.MaxIterations)
	}
	if s.GradientThreshold == 0 {
		s.GradientThreshold = DefaultGradientThreshold
	}
	if err := errors.ValidatePositive("solver.gradient_threshold", s.GradientThreshold); err != nil {
		return err
	}
	if s.PlateauWindow < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "solver.plateau_window must not be negative, got %d", s.PlateauWindow)
	}
	if s.PlateauTol == 0 {
		s.PlateauTol = DefaultPlateauTol
	}
	return errors.ValidatePositive("solver.plateau_tol", s.PlateauTol)
}

func (i *Init) setDefaults() error {
	if i.Policy == "" {
		i.Policy = InitRandom
	}
	if err := errors.ValidateOneOf("init.policy", i.Policy, InitRandom, InitNormal); err != nil {
		return err
	}
	if i.Seed == 0 {
		i.Seed = DefaultSeed
	}
	if i.StdDevRatio == 0 {
		i.StdDevRatio = DefaultStdDevRatio
	}
	return errors.ValidatePositive("init.stddev_ratio", i.StdDevRatio)
}

func (e *Exec) setDefaults() error {
	if e.Executor == "" {
		e.Executor = ExecutorPool
	}
	if err := errors.ValidateOneOf("exec.executor", e.Executor, ExecutorSerial, ExecutorPool); err != nil {
		return err
	}
	if e.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "exec.workers must not be negative, got %d", e.Workers)
	}
	if e.ChunkSize == 0 {
		e.ChunkSize = DefaultChunkSize
	}
	if e.ChunkSize < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "exec.chunk_size must be positive, got %d", e.ChunkSize)
	}
	return nil
}

func (e *Escalate) setDefaults() error {
	if e.Threshold == 0 {
		e.Threshold = DefaultEscalateThreshold
	}
	if e.Factor == 0 {
		e.Factor = DefaultEscalateFactor
	}
	if err := errors.ValidatePositive("escalate.threshold", e.Threshold); err != nil {
		return err
	}
	if e.Factor < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "escalate.factor must be at least 1, got %v", e.Factor)
	}
	return nil
}

func (c *Cache) setDefaults() error {
	if c.Backend == "" {
		c.Backend = CacheFile
	}
	if err := errors.ValidateOneOf("cache.backend", c.Backend, CacheFile, CacheRedis, CacheNone); err != nil {
		return err
	}
	if c.Backend == CacheRedis && c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if _, err := c.TTLDuration(); err != nil {
		return err
	}
	return nil
}

// TTLDuration parses TTL. An empty TTL yields zero.
func (c Cache) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache.ttl %q", c.TTL)
	}
	if d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative, got %s", c.TTL)
	}
	return d, nil
}
