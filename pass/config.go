package pass

import (
	"os"

	"github.com/BurntSushi/toml"
)

// PipelineConfig bounds one greedy-rewrite/pass-manager run and toggles IR
// dumping. It is the unit of configuration callers load once per compile
// and thread through the pipeline; see rewrite.Config for the fields that
// map directly onto the greedy driver.
type PipelineConfig struct {
	// MaxIterations caps the total number of worklist pops in one greedy
	// run (not a per-operation count). Zero means unbounded.
	MaxIterations int `toml:"max_iterations"`
	// RequireConvergence makes a non-empty worklist at MaxIterations a
	// fatal error instead of a best-effort result.
	RequireConvergence bool `toml:"require_convergence"`
	// BottomUp selects BottomUp worklist seeding; the default is
	// top-down.
	BottomUp bool `toml:"bottom_up"`
	// DumpIRBeforePasses and DumpIRAfterPasses are read from and written
	// to the config file only; nothing in this package acts on them. IR
	// dumps at pass boundaries are controlled by IRPrintingConfig.
	DumpIRBeforePasses bool `toml:"dump_ir_before_passes"`
	DumpIRAfterPasses  bool `toml:"dump_ir_after_passes"`
}

// DefaultPipelineConfig returns the conservative defaults used when no
// config file is supplied: top-down, unbounded iterations, convergence not
// required, no dumping.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{}
}

// LoadPipelineConfig reads a PipelineConfig from a TOML file at path.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	var cfg PipelineConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating or truncating it.
func (cfg PipelineConfig) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
