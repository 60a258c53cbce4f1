package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	v1 "github.com/and161185/clipsync/api/clipsync/v1"
	"github.com/and161185/clipsync/internal/convert"
	"github.com/and161185/clipsync/internal/errs"
)

func (g *gateway) createSession(w http.ResponseWriter, r *http.Request) {
	code, err := g.Sessions.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v1.CreateSessionResponse{Code: code})
}

func (g *gateway) joinSession(w http.ResponseWriter, r *http.Request) {
	code, err := g.Sessions.Join(r.Context(), mux.Vars(r)["code"], r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v1.JoinSessionResponse{Code: code})
}

func (g *gateway) listEntries(w http.ResponseWriter, r *http.Request) {
	list, err := g.Entries.List(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v1.ListEntriesResponse{Entries: convert.ToWireEntries(list)})
}

func (g *gateway) appendEntry(w http.ResponseWriter, r *http.Request) {
	var req v1.AppendEntryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed body"})
		return
	}
	e, err := g.Entries.Append(r.Context(), mux.Vars(r)["code"], req.Content, convert.FromWireAttachment(req.Attachment))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v1.AppendEntryResponse{Entry: convert.ToWireEntry(e)})
}

func (g *gateway) clearSession(w http.ResponseWriter, r *http.Request) {
	res, err := g.Entries.Clear(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v1.ClearSessionResponse{Removed: int64(res.Removed)})
}

func (g *gateway) getEntry(w http.ResponseWriter, r *http.Request) {
	e, err := g.Entries.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v1.GetEntryResponse{Entry: convert.ToWireEntry(e)})
}

func (g *gateway) deleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := g.Entries.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadAttachment takes a multipart form with fields "code" and "file".
func (g *gateway) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	if g.Attachments == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "attachments disabled"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, g.opts.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, errs.ErrAttachmentTooLarge)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed form"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing file"})
		return
	}
	defer f.Close()

	att, err := g.Attachments.Upload(r.Context(), r.FormValue("code"), hdr.Filename,
		hdr.Header.Get("Content-Type"), f, hdr.Size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v1.UploadAttachmentResponse{Attachment: convert.ToWireAttachment(att)})
}

// recordVisit counts a visit; the cookie makes repeat visits count toward total only.
func (g *gateway) recordVisit(w http.ResponseWriter, r *http.Request) {
	_, err := r.Cookie(VisitCookie)
	counted := err == nil
	c, err := g.Visits.Record(r.Context(), counted)
	if err != nil {
		writeError(w, err)
		return
	}
	if !counted {
		http.SetCookie(w, &http.Cookie{
			Name:     VisitCookie,
			Value:    "1",
			Path:     "/",
			MaxAge:   10 * 365 * 24 * 3600,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	writeJSON(w, http.StatusOK, v1.RecordVisitResponse{Total: c.Total, Unique: c.Unique})
}
