package export

import (
	"encoding/json"
	"io"
)

type jsonBody struct {
	Metadata any `json:"metadata"`
	Data     any `json:"data"`
}

// WriteJSON writes the document metadata and data.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonBody{Metadata: doc.Metadata, Data: doc.Data})
}
