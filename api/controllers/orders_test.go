package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehta/cartly-backend/api/middleware"
	ordersvc "github.com/arjunmehta/cartly-backend/internal/orders"
	"github.com/arjunmehta/cartly-backend/pkg/enums"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
)

type stubOrderService struct {
	order *ordersvc.OrderDTO
	page  *ordersvc.OrderListResult
	err   error

	lastList ordersvc.ListOrdersInput
}

func (s *stubOrderService) Create(ctx context.Context, userID uuid.UUID, input ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrderService) Get(ctx context.Context, userID, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrderService) List(ctx context.Context, input ordersvc.ListOrdersInput) (*ordersvc.OrderListResult, error) {
	s.lastList = input
	return s.page, s.err
}

func (s *stubOrderService) Deliver(ctx context.Context, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrderService) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return s.order, s.err
}

func TestOrderCreateReturns201(t *testing.T) {
	userID := uuid.New()
	order := &ordersvc.OrderDTO{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      enums.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(380),
	}
	handler := OrderCreate(&stubOrderService{order: order}, nil)

	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":2}],"shipping_address":{"label":"home","city":"Pune","state":"MH","country":"IN","postal_code":"411001"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data ordersvc.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != order.ID {
		t.Fatalf("unexpected order id: %s", envelope.Data.ID)
	}
}

func TestOrderCreateRejectsEmptyItems(t *testing.T) {
	handler := OrderCreate(&stubOrderService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items":[],"shipping_address":{}}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderListParsesStatusFilter(t *testing.T) {
	svc := &stubOrderService{page: &ordersvc.OrderListResult{Orders: []ordersvc.OrderDTO{}}}
	handler := OrderList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=delivered&limit=10", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastList.Filters.Status == nil || *svc.lastList.Filters.Status != enums.OrderStatusDelivered {
		t.Fatalf("status filter not forwarded: %+v", svc.lastList.Filters.Status)
	}
	if svc.lastList.Pagination.Limit != 10 {
		t.Fatalf("limit not forwarded: %d", svc.lastList.Pagination.Limit)
	}
}

func TestOrderListRejectsUnknownStatus(t *testing.T) {
	handler := OrderList(&stubOrderService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=shipped", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderDeliverStateConflict(t *testing.T) {
	handler := OrderDeliver(&stubOrderService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move from delivered to delivered")}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/deliver", nil)
	req = withURLParam(req, "orderId", uuid.NewString())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
