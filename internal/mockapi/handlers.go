package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wesleyorama2/breakwater/internal/faultinject"
)

const correlationHeader = "X-Correlation-ID"

// handleProducts serves GET /internal-api/products?scenario=...
//
// All callers share one global sequence stream, so independently-paced
// concurrent callers interleave on the same counter. The exhaustion
// policy for this surface is reset-and-succeed: once a key's sequence
// runs out, the call succeeds directly and the next pass starts fresh.
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	scenario := r.URL.Query().Get("scenario")
	if scenario == "" {
		scenario = "ok"
	}

	seq, err := faultinject.ParseSequence(scenario)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sequencer := faultinject.NewSequencer(seq, s.productTracker, faultinject.PolicyResetAndSucceed, s.logger)
	if err := sequencer.Call(r.Context(), faultinject.GlobalKey); err != nil {
		s.writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, catalog)
}

// handlePaymentCharge serves POST /internal-api/payment/charge.
//
// Each correlation ID gets its own sequence stream for a scenario, so
// concurrent logical calls with the same scenario do not interfere. A
// request without a correlation ID is assigned one, echoed back in the
// response header. This surface uses reset-and-restart: a stream that
// runs out replays the scenario from its first outcome.
func (s *Server) handlePaymentCharge(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payment request body"})
		return
	}

	scenario := r.URL.Query().Get("scenario")
	if scenario == "" {
		scenario = "ok"
	}
	seq, err := faultinject.ParseSequence(scenario)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	correlationID := r.Header.Get(correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	w.Header().Set(correlationHeader, correlationID)

	sequencer := faultinject.NewSequencer(seq, s.paymentTracker, faultinject.PolicyResetAndRestart, s.logger)
	key := faultinject.CompositeKey(correlationID, scenario)

	if err := sequencer.Call(r.Context(), key); err != nil {
		var fe *faultinject.FaultError
		if errors.As(err, &fe) {
			s.logger.Info("payment fault injected",
				zap.String("correlationId", correlationID),
				zap.String("scenario", scenario),
				zap.String("code", fe.Code))
			writeJSON(w, faultStatus(fe), PaymentResponse{
				TransactionID: fmt.Sprintf("TXN-FAILED-%d", time.Now().UnixMilli()),
				Status:        "FAILED",
				Amount:        req.Amount,
				Message:       fe.Message,
			})
			return
		}
		// Context cancellation mid-delay: the client went away.
		s.logger.Warn("payment call abandoned", zap.Error(err))
		return
	}

	writeJSON(w, http.StatusOK, PaymentResponse{
		TransactionID: fmt.Sprintf("TXN-%d", time.Now().UnixMilli()),
		Status:        "APPROVED",
		Amount:        req.Amount,
		Message:       "Payment processed successfully",
	})
}

// writeFault maps a sequencer error on the products surface to its
// HTTP form.
func (s *Server) writeFault(w http.ResponseWriter, err error) {
	var fe *faultinject.FaultError
	if errors.As(err, &fe) {
		writeJSON(w, faultStatus(fe), errorResponse{Error: fe.Message})
		return
	}
	s.logger.Warn("products call abandoned", zap.Error(err))
}

// faultStatus converts a categorized failure code to an HTTP status.
func faultStatus(fe *faultinject.FaultError) int {
	if code, err := strconv.Atoi(fe.Code); err == nil && code >= 400 && code < 600 {
		return code
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
