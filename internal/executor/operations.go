package executor

import (
	"github.com/t77yq/vigencias-bridge/internal/model"
)

// Operation names understood by the entry script.
const (
	OpCopyDatabase           = "copy_database"
	OpTestFirebirdConnection = "test_firebird_connection"
	OpTestMySQLConnection    = "test_mysql_connection"
	OpProcessVigencias       = "process_vigencias"
)

// CopyDatabaseParams builds the copy_database arguments.
func CopyDatabaseParams(source, destination string) model.Params {
	return model.Params{}.
		Set("SourcePath", source).
		Set("DestinationPath", destination)
}

// FirebirdTestParams builds the test_firebird_connection arguments.
func FirebirdTestParams(cfg model.FirebirdConfig) model.Params {
	return model.Params{}.Set("ConfigJson", map[string]interface{}{"firebird": cfg})
}

// MySQLTestParams builds the test_mysql_connection arguments.
func MySQLTestParams(cfg model.MySQLConfig) model.Params {
	return model.Params{}.Set("ConfigJson", map[string]interface{}{"mysql": cfg})
}

// ProcessVigenciasParams builds the process_vigencias arguments. Word lists
// travel as JSON arrays.
func ProcessVigenciasParams(cfg model.AppConfig) model.Params {
	p := cfg.Process
	return model.Params{}.
		Set("ConfigJson", cfg.Database).
		Set("OutputPath", cfg.Paths.OutputPath).
		Set("DiasFacturas", p.DiasFacturas).
		Set("VigenciaDia", p.VigenciaDia).
		Set("VigenciaConvenio", p.VigenciaConvenio).
		Set("VigenciaCicloEscolar", p.VigenciaCicloEscolar).
		Set("PalabrasExcluidas", wordList(p.PalabrasExcluidas)).
		Set("PalabrasConvenio", wordList(p.PalabrasConvenio)).
		Set("PalabrasCicloEscolar", wordList(p.PalabrasCicloEscolar))
}

// wordList keeps empty lists as "[]" instead of dropping the argument.
func wordList(words []string) []string {
	if words == nil {
		return []string{}
	}
	return words
}
