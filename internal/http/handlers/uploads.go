package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aakash-taneja/miles/internal/providers/augment"
)

type uploadRequest struct {
	File     string `json:"file"`
	Filename string `json:"filename"`
}

type uploadResponse struct {
	CID string `json:"cid"`
	URL string `json:"url"`
}

// UploadsCreate pushes one original to the content-addressed store on behalf
// of the caller and returns its identifier. Identical bytes yield the same
// identifier on re-upload.
func (a *App) UploadsCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.caller(w, r); !ok {
		return
	}
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.File == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "no file provided")
		return
	}
	data, err := augment.DecodeDataURL(req.File)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file is not valid base64")
		return
	}
	name := req.Filename
	if name == "" {
		name = "original.jpg"
	}

	variant, err := a.Store.Upload(r.Context(), name, data)
	if err != nil {
		a.error(w, http.StatusBadGateway, "upstream_failure", err.Error())
		return
	}
	a.json(w, http.StatusOK, uploadResponse{CID: variant.CID, URL: variant.URL})
}
