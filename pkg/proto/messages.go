// Package proto defines the message types exchanged over the checker's
// JSON-over-TCP RPC layer (see pkg/grpc) and published on the Kafka topics.
//
// The types are plain structs with JSON tags so that producers and
// consumers outside this module can build them without generated code.
package proto

// ---------- Common ----------

// Unit is one piece of text to check.
type Unit struct {
	Raw       string `json:"raw"`
	Pretty    string `json:"pretty,omitempty"`
	ContextID string `json:"context_id,omitempty"`
	File      string `json:"file,omitempty"`
	Line      int32  `json:"line"`
}

// Diagnostic is a single style finding. Severity is "error", "warning" or
// "info".
type Diagnostic struct {
	Check       string   `json:"check"`
	Severity    string   `json:"severity"`
	File        string   `json:"file,omitempty"`
	ContextID   string   `json:"context_id,omitempty"`
	Line        int32    `json:"line"`
	Match       string   `json:"match,omitempty"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	Content     string   `json:"content,omitempty"`
	Excerpt     string   `json:"excerpt,omitempty"`
}

// Pagination controls limit/offset for list endpoints.
type Pagination struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

// HealthCheckResponse mirrors the gRPC health checking protocol.
type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING, NOT_SERVING
}

// ---------- Check ----------

// CheckRequest is the input to StyleService.Check and the payload of the
// units topic.
type CheckRequest struct {
	Title      string `json:"title,omitempty"`
	Units      []Unit `json:"units"`
	ErrorsOnly bool   `json:"errors_only,omitempty"`
	// Store keeps the resulting report in the report store.
	Store bool `json:"store,omitempty"`
}

// CheckResponse is the output of StyleService.Check and the payload of the
// results topic.
type CheckResponse struct {
	ReportID       int64        `json:"report_id,omitempty"`
	Title          string       `json:"title"`
	RuleSetVersion string       `json:"rule_set_version,omitempty"`
	Units          int32        `json:"units"`
	Errors         int32        `json:"errors"`
	Warnings       int32        `json:"warnings"`
	Diagnostics    []Diagnostic `json:"diagnostics"`
}

// ---------- Rules ----------

// RuleSetRequest is the input to StyleService.RuleSet and
// StyleService.Reload.
type RuleSetRequest struct{}

// RuleSetResponse describes the active rule set.
type RuleSetResponse struct {
	Loaded    bool   `json:"loaded"`
	Version   string `json:"version,omitempty"`
	Rules     int32  `json:"rules"`
	Groups    int32  `json:"groups"`
	Prefilter bool   `json:"prefilter"`
}

// ---------- Reports ----------

// ReportSummary is one stored report without its diagnostics.
type ReportSummary struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	RuleSetVersion string `json:"rule_set_version"`
	Units          int32  `json:"units"`
	Errors         int32  `json:"errors"`
	Warnings       int32  `json:"warnings"`
	CreatedAt      int64  `json:"created_at"`
}

// ListReportsResponse is the output of StyleService.ListReports.
type ListReportsResponse struct {
	Reports []ReportSummary `json:"reports"`
}
