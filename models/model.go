package models

import "encoding/json"

// ManageRequest is one call of the ftp_manage tool.
type ManageRequest struct {
	Operation  string `json:"operation"`
	ServerPath string `json:"server_path,omitempty"`
	LocalPath  string `json:"local_path,omitempty"`
	NewName    string `json:"new_name,omitempty"`
}

// Outcome is the result of one invocation. Success and failure share the
// record; OK tells them apart and Error carries the failure kind.
type Outcome struct {
	OK         bool     `json:"ok"`
	Operation  string   `json:"operation"`
	ServerPath string   `json:"server_path,omitempty"`
	RemotePath string   `json:"remote_path,omitempty"`
	LocalPath  string   `json:"local_path,omitempty"`
	URL        string   `json:"url,omitempty"`
	Items      []string `json:"items,omitempty"`
	Message    string   `json:"message"`

	Error         string `json:"error,omitempty"`
	Detail        string `json:"detail,omitempty"`
	Path          string `json:"path,omitempty"`
	ExpectedCodes []int  `json:"expected_codes,omitempty"`
	ReceivedCode  int    `json:"received_code,omitempty"`
	Info          string `json:"info,omitempty"`
}

// MarshalJSON keeps an empty listing as "items": [] instead of dropping it.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type alias Outcome
	if o.Items == nil {
		return json.Marshal(alias(o))
	}
	return json.Marshal(struct {
		alias
		Items []string `json:"items"`
	}{alias(o), o.Items})
}

// ErrorResponse is returned for malformed HTTP requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
