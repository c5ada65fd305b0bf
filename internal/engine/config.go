package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/qtrader-lab/qtrader/internal/broker"
	"github.com/qtrader-lab/qtrader/internal/broker/fee"
	"github.com/qtrader-lab/qtrader/internal/metrics"
	"github.com/qtrader-lab/qtrader/internal/risk"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// FeeConfig selects and parameterizes the fee model applied to fills.
type FeeConfig struct {
	Model   fee.Type `yaml:"model" json:"model" jsonschema:"title=Fee Model,description=Fee model applied to every fill"`
	Amount  float64  `yaml:"amount" json:"amount" jsonschema:"title=Amount,description=Fee parameter; fixed fee per fill, fee per unit, or rate for the percentage model,minimum=0"`
	Minimum float64  `yaml:"minimum" json:"minimum" jsonschema:"title=Minimum,description=Floor applied by the per-unit model,minimum=0"`
}

// StrategyConfig names the strategy to run and carries its raw YAML
// parameters, passed through to Strategy.Initialize untouched.
type StrategyConfig struct {
	Name   string `yaml:"name" json:"name" validate:"required" jsonschema:"title=Strategy Name,description=Registered strategy to run"`
	Params string `yaml:"params" json:"params,omitempty" jsonschema:"title=Strategy Params,description=YAML block handed to the strategy"`
}

// Config is the full configuration of a run.
type Config struct {
	InitialCash     float64                    `yaml:"initial_cash" json:"initial_cash" validate:"required,gt=0" jsonschema:"title=Initial Cash,description=Starting cash for the run,minimum=0"`
	SlippageBps     float64                    `yaml:"slippage_bps" json:"slippage_bps" validate:"gte=0" jsonschema:"title=Slippage,description=Adverse slippage in basis points applied to every fill,minimum=0"`
	Fee             FeeConfig                  `yaml:"fee" json:"fee"`
	AllowShort      bool                       `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short,description=Permit negative positions"`
	ExecutionTiming broker.ExecutionTiming     `yaml:"execution_timing" json:"execution_timing" jsonschema:"title=Execution Timing,description=Price a signal executes at"`
	PeriodsPerYear  int                        `yaml:"periods_per_year" json:"periods_per_year" validate:"gte=0" jsonschema:"title=Periods Per Year,description=Bars per year used to annualize metrics,minimum=0"`
	Strategy        StrategyConfig             `yaml:"strategy" json:"strategy"`
	Risk            risk.Config                `yaml:"risk" json:"risk"`
	StartTime       optional.Option[time.Time] `yaml:"start_time" json:"start_time,omitempty" jsonschema:"title=Start Time,description=Optional start of the run window"`
	EndTime         optional.Option[time.Time] `yaml:"end_time" json:"end_time,omitempty" jsonschema:"title=End Time,description=Optional end of the run window"`
}

// DefaultConfig returns the baseline a YAML file overrides.
func DefaultConfig() Config {
	return Config{
		InitialCash:     10000,
		SlippageBps:     0,
		Fee:             FeeConfig{Model: fee.TypeZero},
		AllowShort:      false,
		ExecutionTiming: broker.TimingCurrentClose,
		PeriodsPerYear:  metrics.DefaultPeriodsPerYear,
	}
}

// ParseConfig decodes a YAML document over the defaults and validates
// the result.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// UnmarshalYAML decodes optional timestamps through plain pointers.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type raw struct {
		InitialCash     float64                `yaml:"initial_cash"`
		SlippageBps     float64                `yaml:"slippage_bps"`
		Fee             FeeConfig              `yaml:"fee"`
		AllowShort      bool                   `yaml:"allow_short"`
		ExecutionTiming broker.ExecutionTiming `yaml:"execution_timing"`
		PeriodsPerYear  int                    `yaml:"periods_per_year"`
		Strategy        StrategyConfig         `yaml:"strategy"`
		Risk            riskRaw                `yaml:"risk"`
		StartTime       *time.Time             `yaml:"start_time"`
		EndTime         *time.Time             `yaml:"end_time"`
	}

	decoded := raw{
		InitialCash:     c.InitialCash,
		SlippageBps:     c.SlippageBps,
		Fee:             c.Fee,
		AllowShort:      c.AllowShort,
		ExecutionTiming: c.ExecutionTiming,
		PeriodsPerYear:  c.PeriodsPerYear,
		Strategy:        c.Strategy,
	}

	if err := unmarshal(&decoded); err != nil {
		return err
	}

	c.InitialCash = decoded.InitialCash
	c.SlippageBps = decoded.SlippageBps
	c.Fee = decoded.Fee
	c.AllowShort = decoded.AllowShort
	c.ExecutionTiming = decoded.ExecutionTiming
	c.PeriodsPerYear = decoded.PeriodsPerYear
	c.Strategy = decoded.Strategy
	c.Risk = decoded.Risk.toConfig()

	if decoded.StartTime != nil {
		c.StartTime = optional.Some(*decoded.StartTime)
	}

	if decoded.EndTime != nil {
		c.EndTime = optional.Some(*decoded.EndTime)
	}

	return nil
}

type riskRaw struct {
	StopLossPct   *float64 `yaml:"stop_loss_pct"`
	TakeProfitPct *float64 `yaml:"take_profit_pct"`
}

func (r riskRaw) toConfig() risk.Config {
	var config risk.Config

	if r.StopLossPct != nil {
		config.StopLossPct = optional.Some(*r.StopLossPct)
	}

	if r.TakeProfitPct != nil {
		config.TakeProfitPct = optional.Some(*r.TakeProfitPct)
	}

	return config
}

// Validate checks every field against the run's requirements and maps
// failures onto the configuration error codes.
func (c Config) Validate() error {
	if c.InitialCash <= 0 {
		return errors.Newf(errors.ErrCodeInvalidInitialCash, "initial_cash must be positive, got %v", c.InitialCash)
	}

	if c.SlippageBps < 0 {
		return errors.Newf(errors.ErrCodeInvalidSlippage, "slippage_bps must be non-negative, got %v", c.SlippageBps)
	}

	if _, err := fee.FromConfig(c.Fee.Model, c.Fee.Amount, c.Fee.Minimum); err != nil {
		return err
	}

	switch c.ExecutionTiming {
	case broker.TimingCurrentClose, broker.TimingNextOpen:
	default:
		return errors.Newf(errors.ErrCodeInvalidTiming, "execution_timing must be %q or %q, got %q",
			broker.TimingCurrentClose, broker.TimingNextOpen, c.ExecutionTiming)
	}

	if c.PeriodsPerYear < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "periods_per_year must be non-negative, got %d", c.PeriodsPerYear)
	}

	if err := c.Risk.Validate(); err != nil {
		return err
	}

	if start, err := c.StartTime.Take(); err == nil {
		if end, err := c.EndTime.Take(); err == nil && end.Before(start) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "end_time %s precedes start_time %s", end, start)
		}
	}

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return nil
}

var validate = validator.New()

// GenerateSchema builds the JSON schema for the run configuration.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if t.String() == "optional.Option[float64]" {
				return &jsonschema.Schema{
					Type: "number",
				}
			}

			if t == reflect.TypeOf(fee.Type("")) {
				return &jsonschema.Schema{
					Type: "string",
					Enum: fee.AllTypes,
				}
			}

			if t == reflect.TypeOf(broker.ExecutionTiming("")) {
				return &jsonschema.Schema{
					Type: "string",
					Enum: []any{string(broker.TimingCurrentClose), string(broker.TimingNextOpen)},
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for a backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON renders the schema as indented JSON.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
