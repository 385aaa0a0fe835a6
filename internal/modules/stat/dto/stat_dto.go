package dto

// StatsResponse is the admin overview. AvailabilityByGroup always carries all
// eight blood groups, zero included.
type StatsResponse struct {
	TotalDonors         int64            `json:"total_donors"`
	TotalPatients       int64            `json:"total_patients"`
	RequestsPending     int64            `json:"requests_pending"`
	AvailabilityByGroup map[string]int64 `json:"availability_by_group"`
}
