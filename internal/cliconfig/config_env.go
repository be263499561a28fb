package cliconfig

import "os"

// applyEnv overlays the FOTOLINK_* variables. Only the deploy-relevant
// trio is read from the environment; everything else belongs in the file.
func applyEnv(cfg *Config, changed map[string]bool) error {
	s := setter{changed: changed}

	s.setString("port", os.Getenv("FOTOLINK_PORT"), &cfg.Port)
	if err := s.setIntString("baud", os.Getenv("FOTOLINK_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	s.setString("log-level", os.Getenv("FOTOLINK_LOG_LEVEL"), &cfg.LogLevel)
	return nil
}
