package adherence

// Snapshot es el reporte derivado; no se persiste salvo el rate cacheado
// en el paciente.
type Snapshot struct {
	PatientID   string
	PatientName string
	Period      int // días

	OverallAdherence int // 0..100
	TotalDoses       int
	TakenDoses       int
	MissedDoses      int

	DailyData      []DailyStat      // ascendente por fecha
	MedicationWise []MedicationStat // por nombre
}

type Counts struct {
	Taken     int
	Missed    int
	Total     int
	Adherence int
}

type DailyStat struct {
	Date string // YYYY-MM-DD en la zona de referencia
	Counts
}

type MedicationStat struct {
	MedicationID string
	Name         string
	Counts
}

// Percent redondea taken/total*100 al entero más cercano (mitades hacia
// arriba) sin pasar por float. Con total 0 devuelve 0.
func Percent(taken, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*taken + total) / (2 * total)
}
