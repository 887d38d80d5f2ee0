package energy

// Stats summarises a window of readings.
type Stats struct {
	AvgPower    float64 `json:"avg_power"`
	MaxPower    float64 `json:"max_power"`
	MinPower    float64 `json:"min_power"`
	TotalEnergy float64 `json:"total_energy"`
	Points      int     `json:"data_points"`
}
