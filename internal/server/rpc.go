package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	apierrors "github.com/OptimLLab/Globalizer-Benchmarks/internal/errors"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type studyIDParams struct {
	StudyID string `json:"study_id"`
}

type problemParams struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension,omitempty"`
}

type evaluateParams struct {
	Name string `json:"name"`
	EvaluateRequest
}

// decodeParams accepts params as an object or as a one-element array
// holding the object.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return apierrors.InvalidParams("missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return apierrors.InvalidParams("invalid parameter format: %v", err)
		}
		if len(list) != 1 {
			return apierrors.InvalidParams("expected one parameter object, got %d", len(list))
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apierrors.InvalidParams("invalid parameter format, expected object: %v", err)
	}
	return nil
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, apierrors.CodeParseError, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, apierrors.CodeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error
	ctx := r.Context()

	switch request.Method {
	case "study.start":
		var p StudyRequest
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.startStudy(ctx, p)
		}
	case "study.status":
		var p studyIDParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.getStudy(ctx, p.StudyID)
		}
	case "study.cancel":
		var p studyIDParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.rpcCancel(r, p.StudyID)
		}
	case "problem.describe":
		var p problemParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.describe(p.Name, p.Dimension)
		}
	case "problem.evaluate":
		var p evaluateParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.evaluate(ctx, p.Name, p.EvaluateRequest)
		}
	default:
		s.respondWithError(w, apierrors.CodeMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, apierrors.Code(err), apierrors.NewBody(err).Error, request.ID)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

func (s *Server) rpcCancel(r *http.Request, id string) (interface{}, error) {
	st, err := s.getStudy(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if st.Status.Terminal() || !s.cancelStudy(id) {
		return nil, apierrors.Conflict("cannot cancel study with status: %s", st.Status)
	}
	return map[string]string{"status": "cancellation requested"}, nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Debug("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
