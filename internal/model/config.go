package model

import "time"

// FirebirdConfig holds the source database connection.
type FirebirdConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Database string `json:"database" mapstructure:"database"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Port     string `json:"port" mapstructure:"port"`
}

// MySQLConfig holds the destination database connection.
type MySQLConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Database string `json:"database" mapstructure:"database"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
}

// DatabaseConfig groups both connections.
type DatabaseConfig struct {
	Firebird FirebirdConfig `json:"firebird" mapstructure:"firebird"`
	MySQL    MySQLConfig    `json:"mysql" mapstructure:"mysql"`
}

// PathConfig holds the filesystem locations used by the job.
type PathConfig struct {
	SourceDBPath string `json:"sourceDbPath" mapstructure:"sourceDbPath"`
	LocalDBPath  string `json:"localDbPath" mapstructure:"localDbPath"`
	OutputPath   string `json:"outputPath" mapstructure:"outputPath"`
}

// ProcessConfig holds the validity computation parameters and the schedule.
type ProcessConfig struct {
	DiasFacturas         int            `json:"diasFacturas" mapstructure:"diasFacturas"`
	VigenciaDia          int            `json:"vigenciaDia" mapstructure:"vigenciaDia"`
	VigenciaConvenio     int            `json:"vigenciaConvenio" mapstructure:"vigenciaConvenio"`
	VigenciaCicloEscolar int            `json:"vigenciaCicloEscolar" mapstructure:"vigenciaCicloEscolar"`
	PalabrasExcluidas    []string       `json:"palabrasExcluidas" mapstructure:"palabrasExcluidas"`
	PalabrasConvenio     []string       `json:"palabrasConvenio" mapstructure:"palabrasConvenio"`
	PalabrasCicloEscolar []string       `json:"palabrasCicloEscolar" mapstructure:"palabrasCicloEscolar"`
	ScheduledExecution   ScheduleConfig `json:"scheduledExecution" mapstructure:"scheduledExecution"`
}

// AppConfig is the persisted job configuration document.
type AppConfig struct {
	Database    DatabaseConfig `json:"database" mapstructure:"database"`
	Paths       PathConfig     `json:"paths" mapstructure:"paths"`
	Process     ProcessConfig  `json:"process" mapstructure:"process"`
	LastUpdated time.Time      `json:"lastUpdated" mapstructure:"lastUpdated"`
}
