package model

// ProcessSummary is the payload reported by process_vigencias.
type ProcessSummary struct {
	Success            bool     `json:"success"`
	Message            string   `json:"message"`
	FacturasProcessed  int      `json:"facturasProcessed"`
	VigenciasUpdated   int      `json:"vigenciasUpdated"`
	RegistrosGenerados int      `json:"registrosGenerados"`
	Errors             []string `json:"errors"`
	ArchivosGenerados  []string `json:"archivosGenerados"`
}
