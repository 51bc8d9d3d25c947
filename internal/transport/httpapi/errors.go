package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
)

// Коды ошибок в теле ответа.
const (
	codeInvalidJSON            = "invalid_json"
	codeInvalidRequest         = "invalid_request"
	codeInvalidProductInReq    = "invalid_product_in_request"
	codeInsufficientStock      = "insufficient_stock"
	codeInvalidCustomer        = "invalid_customer"
	codeInvalidProduct         = "invalid_product"
	codeCustomerNotFound       = "customer_not_found"
	codeOrderNotFound          = "order_not_found"
	codeProductNotFound        = "product_not_found"
	codeEmailTaken             = "email_taken"
	codeProductNameTaken       = "product_name_taken"
	codeStockConflict          = "stock_conflict"
	codeIdempotencyInProgress  = "idempotency_in_progress"
	codeIdempotencyMismatch    = "idempotency_key_mismatch"
	codeIdempotencyKeyInvalid  = "idempotency_key_invalid"
	codeInternal               = "internal"
	messageInternalServerError = "internal server error"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Порядок важен: первая совпавшая запись определяет ответ.
var errorMappings = []errorMapping{
	{domain.ErrInvalidOrderRequest, http.StatusBadRequest, codeInvalidRequest},
	{domain.ErrInvalidProductInRequest, http.StatusBadRequest, codeInvalidProductInReq},
	{domain.ErrInsufficientStock, http.StatusBadRequest, codeInsufficientStock},
	{domain.ErrInvalidCustomer, http.StatusBadRequest, codeInvalidCustomer},
	{domain.ErrInvalidProduct, http.StatusBadRequest, codeInvalidProduct},
	{domain.ErrCustomerNotFound, http.StatusNotFound, codeCustomerNotFound},
	{domain.ErrOrderNotFound, http.StatusNotFound, codeOrderNotFound},
	{domain.ErrProductNotFound, http.StatusNotFound, codeProductNotFound},
	{domain.ErrCustomerEmailTaken, http.StatusConflict, codeEmailTaken},
	{domain.ErrProductNameTaken, http.StatusConflict, codeProductNameTaken},
	{domain.ErrStockConflict, http.StatusConflict, codeStockConflict},
	{idempotency.ErrRequestInProgress, http.StatusConflict, codeIdempotencyInProgress},
	{domain.ErrIdempotencyHashMismatch, http.StatusUnprocessableEntity, codeIdempotencyMismatch},
}

// statusForError возвращает HTTP-статус и код ошибки для доменной ошибки.
func statusForError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, codeInternal
}

// writeDomainError пишет ответ по ошибке сервиса. Инфраструктурные ошибки
// логируются, клиенту уходит обезличенное сообщение.
func writeDomainError(w http.ResponseWriter, logger *log.Entry, err error) {
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
		writeError(w, status, code, messageInternalServerError)
		return
	}

	message := err.Error()
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		message = stockErr.Error()
	}
	writeError(w, status, code, message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
