package model

// RefreshStatus is the singleton row tracking the most recent successful
// sync. LastRefreshedAt is nil until the first refresh commits.
type RefreshStatus struct {
	LastRefreshedAt *string `json:"last_refreshed_at"`
}
