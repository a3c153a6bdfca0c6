package model

// Posting is a job description published on an applicant tracking system.
type Posting struct {
	Source  string // "greenhouse", "lever" or "ashby"
	Title   string
	Company string
	URL     string
	Text    string // plain text, HTML removed
}
