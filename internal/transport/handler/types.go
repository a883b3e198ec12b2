package handler

type ConvertParams struct {
	SourceFormat      string `validate:"required,max=8"`
	DestinationFormat string `validate:"required,max=8"`
}

type ConvertResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

type StatusResponse struct {
	JobID             string `json:"job_id"`
	Status            string `json:"status"`
	Progress          int    `json:"progress"`
	SourceFormat      string `json:"source_format"`
	DestinationFormat string `json:"destination_format"`
	OriginalFilename  string `json:"original_filename,omitempty"`
	MethodUsed        string `json:"method_used,omitempty"`
	Error             string `json:"error,omitempty"`
	DownloadURL       string `json:"download_url,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}
