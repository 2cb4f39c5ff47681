package hunterqueue

// RefreshScanJob periodically scans for hunters with stale scores and feeds
// them into the update queue.
type RefreshScanJob struct{}

// Kind returns the job type identifier for River.
func (RefreshScanJob) Kind() string { return "hunter_refresh_scan" }

// LogCleanupJob prunes old api_call_log rows.
type LogCleanupJob struct{}

// Kind returns the job type identifier for River.
func (LogCleanupJob) Kind() string { return "api_log_cleanup" }
