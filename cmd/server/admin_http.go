package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"voxelquarry.ai/internal/protocol"
	"voxelquarry.ai/internal/sim/world"
	"voxelquarry.ai/internal/sim/world/feature/quarry/orchestrator"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

// adminAPI exposes operator session controls under /admin/v1. Every handler
// runs its orchestrator call on the loop goroutine via loop.Do.
type adminAPI struct {
	loop *world.Loop
	orch *orchestrator.Orchestrator
	log  *log.Logger
}

func newAdminAPI(loop *world.Loop, orch *orchestrator.Orchestrator, logger *log.Logger) *adminAPI {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &adminAPI{loop: loop, orch: orch, log: logger}
}

func (a *adminAPI) Register(mux *http.ServeMux) {
	mux.Handle("GET /admin/v1/sessions", loopbackOnly(http.HandlerFunc(a.handleList)))
	mux.Handle("POST /admin/v1/sessions", loopbackOnly(http.HandlerFunc(a.handleCreate)))
	mux.Handle("POST /admin/v1/sessions/{id}/{action}", loopbackOnly(http.HandlerFunc(a.handleControl)))
}

func loopbackOnly(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			writeError(w, http.StatusForbidden, protocol.ErrNoPermission, "forbidden")
			return
		}
		h.ServeHTTP(w, r)
	})
}

type adminSession struct {
	protocol.SessionStatus
	Owner  string `json:"owner"`
	Base   [3]int `json:"base"`
	Width  int    `json:"width"`
	Length int    `json:"length"`
}

type listResponse struct {
	Tick     uint64         `json:"tick"`
	Sessions []adminSession `json:"sessions"`
}

type createRequest struct {
	Owner      string   `json:"owner"`
	World      string   `json:"world"`
	CornerA    [3]int   `json:"corner_a"`
	CornerB    [3]int   `json:"corner_b"`
	Pattern    string   `json:"pattern,omitempty"`
	Speed      string   `json:"speed,omitempty"`
	Bins       [][3]int `json:"bins,omitempty"`
	ScanZFirst bool     `json:"scan_z_first,omitempty"`
}

func (a *adminAPI) handleList(w http.ResponseWriter, r *http.Request) {
	var resp listResponse
	err := a.do(r.Context(), func() {
		resp.Tick = a.loop.Scheduler().Now()
		resp.Sessions = []adminSession{}
		for _, st := range a.orch.List() {
			s, ok := sessionStatus(a.orch, st)
			if !ok {
				continue
			}
			resp.Sessions = append(resp.Sessions, adminSession{
				SessionStatus: s,
				Owner:         st.Owner,
				Base:          st.Base.ToArray(),
				Width:         st.Width,
				Length:        st.Length,
			})
		}
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *adminAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in createRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "bad json")
		return
	}
	in.Owner = strings.TrimSpace(in.Owner)
	if in.Owner == "" || strings.TrimSpace(in.World) == "" {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "owner and world are required")
		return
	}
	req := orchestrator.CreateRequest{
		Owner:      in.Owner,
		World:      strings.TrimSpace(in.World),
		CornerA:    modelpkg.FromArray(in.CornerA),
		CornerB:    modelpkg.FromArray(in.CornerB),
		Pattern:    in.Pattern,
		Speed:      in.Speed,
		ScanZFirst: in.ScanZFirst,
	}
	for _, b := range in.Bins {
		req.Bins = append(req.Bins, modelpkg.FromArray(b))
	}

	var out adminSession
	var createErr error
	err := a.do(r.Context(), func() {
		st, err := a.orch.Create(req)
		if err != nil {
			createErr = err
			return
		}
		out = adminSession{Owner: st.Owner, Base: st.Base.ToArray(), Width: st.Width, Length: st.Length}
		if s, ok := sessionStatus(a.orch, st); ok {
			out.SessionStatus = s
		} else {
			out.SessionStatus = protocol.SessionStatus{SessionID: st.ID, World: st.World, Pattern: st.Pattern, Speed: st.Speed}
		}
	})
	if err == nil {
		err = createErr
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	a.log.Printf("admin: created session=%s owner=%s world=%s", out.SessionID, out.Owner, out.World)
	writeJSON(w, http.StatusCreated, out)
}

func (a *adminAPI) handleControl(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	action := r.PathValue("action")
	var op func(string) error
	switch action {
	case "pause":
		op = a.orch.Pause
	case "resume":
		op = a.orch.Resume
	case "stop":
		op = a.orch.Stop
	default:
		writeError(w, http.StatusNotFound, protocol.ErrNotFound, "unknown action")
		return
	}
	var opErr error
	err := a.do(r.Context(), func() { opErr = op(id) })
	if err == nil {
		err = opErr
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	a.log.Printf("admin: %s session=%s", action, id)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "session_id": id, "action": action})
}

func (a *adminAPI) do(ctx context.Context, fn func()) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.loop.Do(ctx, fn)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, orchestrator.ErrSessionNotFound):
		return http.StatusNotFound, protocol.ErrNotFound
	case errors.Is(err, orchestrator.ErrWorldNotFound):
		return http.StatusNotFound, protocol.ErrWorldNotFound
	case errors.Is(err, orchestrator.ErrOwnerBusy):
		return http.StatusConflict, protocol.ErrConflict
	case errors.Is(err, orchestrator.ErrNotAuthorized):
		return http.StatusForbidden, protocol.ErrNoPermission
	case errors.Is(err, orchestrator.ErrCornersNotLevel),
		errors.Is(err, orchestrator.ErrUnknownPattern),
		errors.Is(err, orchestrator.ErrUnknownSpeed),
		errors.Is(err, orchestrator.ErrVolumeTooLarge),
		errors.Is(err, orchestrator.ErrBelowFloor),
		errors.Is(err, orchestrator.ErrBinNotFound):
		return http.StatusBadRequest, protocol.ErrBadRequest
	case errors.Is(err, world.ErrStopped), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, protocol.ErrBlocked
	default:
		return http.StatusInternalServerError, protocol.ErrInternal
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	writeError(w, status, code, err.Error())
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, protocol.NewError(code, msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
