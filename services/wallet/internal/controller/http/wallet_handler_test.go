package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"points-wallet/pkg/logger"
	"points-wallet/services/wallet/internal/entity"
	"points-wallet/services/wallet/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockWalletUseCase is a mock implementation of WalletUseCase
type MockWalletUseCase struct {
	mock.Mock
}

func (m *MockWalletUseCase) GetWallet(businessID string) (*entity.Wallet, error) {
	args := m.Called(businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Wallet), args.Error(1)
}

func (m *MockWalletUseCase) GetWalletSummary(businessID string) (*usecase.WalletSummary, error) {
	args := m.Called(businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.WalletSummary), args.Error(1)
}

func (m *MockWalletUseCase) OnCustomerRedemption(customerID, businessID string, points int, rewardTitle string) (bool, error) {
	args := m.Called(customerID, businessID, points, rewardTitle)
	return args.Bool(0), args.Error(1)
}

func (m *MockWalletUseCase) PurchaseParticipantSlots(businessID string, count int) (*usecase.SlotPurchaseResult, error) {
	args := m.Called(businessID, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SlotPurchaseResult), args.Error(1)
}

func (m *MockWalletUseCase) PurchaseVisibilityBoost(businessID, duration string) (*usecase.FeaturePurchaseResult, error) {
	args := m.Called(businessID, duration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.FeaturePurchaseResult), args.Error(1)
}

func (m *MockWalletUseCase) PurchaseFeature(businessID string, sku entity.SKU) (*usecase.FeaturePurchaseResult, error) {
	args := m.Called(businessID, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.FeaturePurchaseResult), args.Error(1)
}

func (m *MockWalletUseCase) RefundParticipantSlots(businessID, entryID, reason string) (*entity.Wallet, error) {
	args := m.Called(businessID, entryID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Wallet), args.Error(1)
}

func (m *MockWalletUseCase) GetTransactions(businessID string, limit int) ([]*entity.LedgerEntry, error) {
	args := m.Called(businessID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.LedgerEntry), args.Error(1)
}

func (m *MockWalletUseCase) ExportStatement(businessID string) (string, error) {
	args := m.Called(businessID)
	return args.String(0), args.Error(1)
}

var _ usecase.WalletUseCase = (*MockWalletUseCase)(nil)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func asBusiness(businessID string, handlerFunc gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("business_id", businessID)
		handlerFunc(c)
	}
}

func TestGetWallet_Success(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.GET("/wallet", asBusiness("biz-123", handler.GetWallet))

	mockWallet := &entity.Wallet{
		ID:          "wallet-1",
		BusinessID:  "biz-123",
		Balance:     150,
		TotalEarned: 400,
		TotalSpent:  250,
	}
	mockUseCase.On("GetWallet", "biz-123").Return(mockWallet, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/wallet", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, float64(150), response["balance"])
	assert.Equal(t, "biz-123", response["business_id"])

	mockUseCase.AssertExpectations(t)
}

func TestGetWalletSummary_Success(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.GET("/wallet/summary", asBusiness("biz-123", handler.GetWalletSummary))

	mockUseCase.On("GetWalletSummary", "biz-123").Return(&usecase.WalletSummary{
		Balance:          150,
		TotalEarned:      400,
		TotalSpent:       250,
		CanPurchaseSlots: true,
		CanPurchaseBoost: true,
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/wallet/summary", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, true, response["can_purchase_slots"])
	assert.Equal(t, true, response["can_purchase_boost"])

	mockUseCase.AssertExpectations(t)
}

func TestOnCustomerRedemption_Success(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/internal/redemptions", handler.OnCustomerRedemption)

	mockUseCase.On("OnCustomerRedemption", "cust-1", "biz-123", 100, "Free Coffee").Return(true, nil)

	body := `{"customer_id":"cust-1","business_id":"biz-123","points":100,"reward_title":"Free Coffee"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/internal/redemptions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, true, response["credited"])

	mockUseCase.AssertExpectations(t)
}

func TestOnCustomerRedemption_MissingFields(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/internal/redemptions", handler.OnCustomerRedemption)

	body := `{"customer_id":"cust-1"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/internal/redemptions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockUseCase.AssertNotCalled(t, "OnCustomerRedemption")
}

func TestPurchaseSlots_Success(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/wallet/purchases/slots", asBusiness("biz-123", handler.PurchaseSlots))

	mockUseCase.On("PurchaseParticipantSlots", "biz-123", 5).Return(&usecase.SlotPurchaseResult{
		SlotsPurchased: 5,
		PointsSpent:    250,
		Balance:        50,
		PaidRemaining:  35,
	}, nil)

	body := `{"count":5}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/wallet/purchases/slots", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, true, response["success"])
	purchase := response["purchase"].(map[string]interface{})
	assert.Equal(t, float64(250), purchase["points_spent"])
	assert.Equal(t, float64(50), purchase["balance"])

	mockUseCase.AssertExpectations(t)
}

func TestPurchaseSlots_OrganicQuotaNotExhausted(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/wallet/purchases/slots", asBusiness("biz-123", handler.PurchaseSlots))

	mockUseCase.On("PurchaseParticipantSlots", "biz-123", 1).Return(nil, entity.ErrOrganicQuotaNotExhausted)

	body := `{"count":1}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/wallet/purchases/slots", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, false, response["success"])
	assert.Equal(t, entity.ErrOrganicQuotaNotExhausted.Error(), response["error"])

	mockUseCase.AssertExpectations(t)
}

func TestPurchaseSlots_InfrastructureFailure(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/wallet/purchases/slots", asBusiness("biz-123", handler.PurchaseSlots))

	mockUseCase.On("PurchaseParticipantSlots", "biz-123", 1).Return(nil, errors.New("connection refused"))

	body := `{"count":1}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/wallet/purchases/slots", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "internal error, try again later", response["error"])

	mockUseCase.AssertExpectations(t)
}

func TestPurchaseSlots_InvalidCount(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/wallet/purchases/slots", asBusiness("biz-123", handler.PurchaseSlots))

	body := `{"count":0}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/wallet/purchases/slots", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockUseCase.AssertNotCalled(t, "PurchaseParticipantSlots")
}

func TestPurchaseBoost_Success(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/wallet/purchases/boost", asBusiness("biz-123", handler.PurchaseBoost))

	mockUseCase.On("PurchaseVisibilityBoost", "biz-123", "24h").Return(&usecase.FeaturePurchaseResult{
		SKU:         entity.SKUVisibilityBoost24H,
		PointsSpent: 30,
		ExpiresAt:   time.Now().UTC().Add(24 * time.Hour),
		Balance:     70,
	}, nil)

	body := `{"duration":"24h"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/wallet/purchases/boost", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, true, response["success"])

	mockUseCase.AssertExpectations(t)
}

func TestPurchaseBoost_UnsupportedDuration(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/wallet/purchases/boost", asBusiness("biz-123", handler.PurchaseBoost))

	body := `{"duration":"48h"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/wallet/purchases/boost", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockUseCase.AssertNotCalled(t, "PurchaseVisibilityBoost")
}

func TestPurchaseFeature_UnknownSKU(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/wallet/purchases/feature", asBusiness("biz-123", handler.PurchaseFeature))

	mockUseCase.On("PurchaseFeature", "biz-123", entity.SKU("jetpack")).Return(nil, entity.ErrUnknownSKU)

	body := `{"sku":"jetpack"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/wallet/purchases/feature", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockUseCase.AssertExpectations(t)
}

func TestRefundSlots_EntryNotFound(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/wallet/refunds", asBusiness("biz-123", handler.RefundSlots))

	mockUseCase.On("RefundParticipantSlots", "biz-123", "entry-missing", "").Return(nil, entity.ErrEntryNotFound)

	body := `{"entry_id":"entry-missing"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/wallet/refunds", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockUseCase.AssertExpectations(t)
}

func TestRefundSlots_Success(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.POST("/wallet/refunds", asBusiness("biz-123", handler.RefundSlots))

	mockWallet := &entity.Wallet{ID: "wallet-1", BusinessID: "biz-123", Balance: 300}
	mockUseCase.On("RefundParticipantSlots", "biz-123", "entry-1", "changed plans").Return(mockWallet, nil)

	body := `{"entry_id":"entry-1","reason":"changed plans"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/wallet/refunds", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, true, response["success"])

	mockUseCase.AssertExpectations(t)
}

func TestGetTransactions_DefaultLimit(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.GET("/wallet/transactions", asBusiness("biz-123", handler.GetTransactions))

	mockEntries := []*entity.LedgerEntry{
		{ID: "entry-1", Kind: entity.KindEarnedFromRedemption, Amount: 100},
	}
	mockUseCase.On("GetTransactions", "biz-123", 50).Return(mockEntries, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/wallet/transactions", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, float64(1), response["count"])

	mockUseCase.AssertExpectations(t)
}

func TestGetTransactions_LimitCapped(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.GET("/wallet/transactions", asBusiness("biz-123", handler.GetTransactions))

	// Over-cap values fall back to the default
	mockUseCase.On("GetTransactions", "biz-123", 50).Return([]*entity.LedgerEntry{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/wallet/transactions?limit=500", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockUseCase.AssertExpectations(t)
}

func TestGetTransactions_ExplicitLimit(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.GET("/wallet/transactions", asBusiness("biz-123", handler.GetTransactions))

	mockUseCase.On("GetTransactions", "biz-123", 10).Return([]*entity.LedgerEntry{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/wallet/transactions?limit=10", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockUseCase.AssertExpectations(t)
}

func TestExportStatement_Success(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	router := setupTestRouter()
	router.GET("/wallet/statement", asBusiness("biz-123", handler.ExportStatement))

	mockUseCase.On("ExportStatement", "biz-123").Return("https://storage.example.com/statements/biz-123.csv", nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/wallet/statement", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "https://storage.example.com/statements/biz-123.csv", response["url"])

	mockUseCase.AssertExpectations(t)
}

func TestNewWalletHandler(t *testing.T) {
	mockUseCase := new(MockWalletUseCase)
	handler := NewWalletHandler(mockUseCase, logger.New())

	assert.NotNil(t, handler)
}
