package syncclient

// ReceiveResponse from POST /api/v1/sync/receive/{table}
type ReceiveResponse struct {
	Status           string `json:"status"`
	Table            string `json:"table"`
	RecordsProcessed int    `json:"records_processed"`
	Applied          int    `json:"applied"`
	Discarded        int    `json:"discarded"`
	Rejected         int    `json:"rejected"`
}

// DeleteRequest for DELETE /api/v1/sync/delete/{table}
type DeleteRequest struct {
	IDs []string `json:"ids"`
}

// DeleteResponse from DELETE /api/v1/sync/delete/{table}
type DeleteResponse struct {
	Status  string `json:"status"`
	Deleted int    `json:"deleted"`
}
