package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/balance"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBalanceReader struct {
	mock.Mock
}

func (m *MockBalanceReader) Get(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID) (*balance.Balance, error) {
	args := m.Called(ctx, stream, storeID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

type MockEntryLister struct {
	mock.Mock
}

func (m *MockEntryLister) ListForAccount(ctx context.Context, stream ledger.Stream, storeID, accountKey uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, stream, storeID, accountKey, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func newQueryRouter(balances *MockBalanceReader, entries *MockEntryLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewQueryHandler(newHandlerTestLogger(), balances, entries)
	router := gin.New()
	router.GET("/stores/:id/customers/:cid/balance", handler.GetBalance)
	router.GET("/stores/:id/customers/:cid/entries", handler.ListEntries)
	return router
}

func TestQueryHandler_GetBalance(t *testing.T) {
	storeID := uuid.New()
	customerID := uuid.New()

	t.Run("returns the credit balance by default", func(t *testing.T) {
		balances := new(MockBalanceReader)
		entries := new(MockEntryLister)
		router := newQueryRouter(balances, entries)

		balances.On("Get", mock.Anything, ledger.StreamCredit, storeID, customerID).
			Return(&balance.Balance{
				StoreID:    storeID,
				CustomerID: customerID,
				Stream:     ledger.StreamCredit,
				Current:    60,
				UpdatedAt:  time.Now().UTC(),
			}, nil).Once()

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/stores/%s/customers/%s/balance", storeID, customerID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data BalanceResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, storeID.String(), resp.Data.StoreID)
		assert.Equal(t, "CREDIT", resp.Data.Stream)
		assert.Equal(t, int64(60), resp.Data.Current)
		balances.AssertExpectations(t)
	})

	t.Run("honors an explicit stream parameter", func(t *testing.T) {
		balances := new(MockBalanceReader)
		entries := new(MockEntryLister)
		router := newQueryRouter(balances, entries)

		balances.On("Get", mock.Anything, ledger.StreamFiat, storeID, customerID).
			Return(&balance.Balance{
				StoreID:    storeID,
				CustomerID: customerID,
				Stream:     ledger.StreamFiat,
				Current:    2500,
				UpdatedAt:  time.Now().UTC(),
			}, nil).Once()

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/stores/%s/customers/%s/balance?stream=FIAT", storeID, customerID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		balances.AssertExpectations(t)
	})

	t.Run("rejects an unknown stream", func(t *testing.T) {
		balances := new(MockBalanceReader)
		entries := new(MockEntryLister)
		router := newQueryRouter(balances, entries)

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/stores/%s/customers/%s/balance?stream=GOLD", storeID, customerID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		balances.AssertNotCalled(t, "Get")
	})

	t.Run("rejects a malformed store id", func(t *testing.T) {
		balances := new(MockBalanceReader)
		entries := new(MockEntryLister)
		router := newQueryRouter(balances, entries)

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/stores/not-a-uuid/customers/%s/balance", customerID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		balances.AssertNotCalled(t, "Get")
	})

	t.Run("maps reader failures to 500", func(t *testing.T) {
		balances := new(MockBalanceReader)
		entries := new(MockEntryLister)
		router := newQueryRouter(balances, entries)

		balances.On("Get", mock.Anything, ledger.StreamCredit, storeID, customerID).
			Return(nil, errors.New("database error")).Once()

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/stores/%s/customers/%s/balance", storeID, customerID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		balances.AssertExpectations(t)
	})
}

func TestQueryHandler_ListEntries(t *testing.T) {
	storeID := uuid.New()
	customerID := uuid.New()

	t.Run("returns a paginated entry list", func(t *testing.T) {
		balances := new(MockBalanceReader)
		entries := new(MockEntryLister)
		router := newQueryRouter(balances, entries)

		list := []*ledger.Entry{
			testEntry(ledger.StreamCredit, 50),
			testEntry(ledger.StreamCredit, -40),
		}
		entries.On("ListForAccount", mock.Anything, ledger.StreamCredit, storeID, customerID, 2, 2).
			Return(list, int64(5), nil).Once()

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/stores/%s/customers/%s/entries?page=2&per_page=2", storeID, customerID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data []EntryResponse `json:"data"`
			Meta MetaInfo        `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, int64(50), resp.Data[0].Amount)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 2, resp.Meta.PerPage)
		assert.Equal(t, 5, resp.Meta.TotalItems)
		assert.Equal(t, 3, resp.Meta.TotalPages)
		entries.AssertExpectations(t)
	})

	t.Run("applies default pagination", func(t *testing.T) {
		balances := new(MockBalanceReader)
		entries := new(MockEntryLister)
		router := newQueryRouter(balances, entries)

		entries.On("ListForAccount", mock.Anything, ledger.StreamCredit, storeID, customerID, 10, 0).
			Return([]*ledger.Entry{}, int64(0), nil).Once()

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/stores/%s/customers/%s/entries", storeID, customerID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		entries.AssertExpectations(t)
	})

	t.Run("rejects out-of-range pagination", func(t *testing.T) {
		balances := new(MockBalanceReader)
		entries := new(MockEntryLister)
		router := newQueryRouter(balances, entries)

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/stores/%s/customers/%s/entries?per_page=1000", storeID, customerID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		entries.AssertNotCalled(t, "ListForAccount")
	})

	t.Run("maps lister failures to 500", func(t *testing.T) {
		balances := new(MockBalanceReader)
		entries := new(MockEntryLister)
		router := newQueryRouter(balances, entries)

		entries.On("ListForAccount", mock.Anything, ledger.StreamCredit, storeID, customerID, 10, 0).
			Return(nil, int64(0), errors.New("database error")).Once()

		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/stores/%s/customers/%s/entries", storeID, customerID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		entries.AssertExpectations(t)
	})
}
