package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"islandstay/internal/app/scheduling"
	"islandstay/internal/domain/booking"
	"islandstay/internal/domain/listings"
	"islandstay/internal/domain/pricing"
	"islandstay/internal/domain/shared/money"
	"islandstay/internal/domain/users"
	"islandstay/internal/infra/storage/memory"
)

type deniedLedger struct {
	booking.CapacityLedger
}

func (d deniedLedger) ActiveBookings(ctx context.Context, key booking.ConflictKey) ([]*booking.Booking, error) {
	return nil, booking.ErrPermissionDenied
}

func newTestRouter(t *testing.T, ledger booking.CapacityLedger, listingsRepo listings.Repository, usersRepo users.Repository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := BookingHandler{
		Scheduling: &scheduling.Service{Ledger: ledger},
		Pricing:    pricing.NewService("LK"),
		Listings:   listingsRepo,
		Users:      usersRepo,
	}
	router := gin.New()
	router.POST("/bookings", handler.Create)
	router.GET("/me/bookings", handler.ListMine)
	return router
}

func seedStack(t *testing.T, capacity int, inventory listings.InventoryType) (*memory.Ledger, *memory.ListingRepository, *memory.UserRepository) {
	t.Helper()
	ctx := context.Background()
	listingsRepo := memory.NewListingRepository()
	usersRepo := memory.NewUserRepository()
	ledger := memory.NewLedger(listingsRepo)

	listing, err := listings.NewListing(listings.CreateParams{
		ID:            "l-1",
		Host:          "h-1",
		Title:         "Whale watching",
		Location:      "Mirissa",
		InventoryType: inventory,
		Capacity:      capacity,
		LocalPrice:    money.Must(350000, "LKR"),
		ForeignPrice:  money.Must(5000, "USD"),
		Now:           time.Now(),
	})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if err := listingsRepo.Save(ctx, listing); err != nil {
		t.Fatalf("save listing: %v", err)
	}

	traveler, err := users.NewUser(users.CreateParams{
		ID:    "u-1",
		Email: "alex@example.com",
		Role:  users.RoleTourist,
		Now:   time.Now(),
	})
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if err := usersRepo.Save(ctx, traveler); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return ledger, listingsRepo, usersRepo
}

func postBooking(t *testing.T, router *gin.Engine, travelerID string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if travelerID != "" {
		req.Header.Set("X-Traveler-ID", travelerID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateBooking_HTTPHappyPath(t *testing.T) {
	ledger, listingsRepo, usersRepo := seedStack(t, 10, listings.InventorySlot)
	router := newTestRouter(t, ledger, listingsRepo, usersRepo)

	rec := postBooking(t, router, "u-1", map[string]any{
		"listing_id":   "l-1",
		"booking_date": "2026-09-10",
		"time_slot":    "09:00",
		"quantity":     2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		BookingID  string `json:"booking_id"`
		TotalPrice int64  `json:"total_price"`
		Currency   string `json:"currency"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.BookingID == "" {
		t.Error("expected a booking id")
	}
	// Traveler with no recorded origin pays the foreign tier.
	if resp.Currency != "USD" || resp.TotalPrice != 10000 {
		t.Errorf("expected 100.00 USD, got %d %s", resp.TotalPrice, resp.Currency)
	}
	if resp.Status != "pending" {
		t.Errorf("expected pending, got %s", resp.Status)
	}
}

func TestCreateBooking_HTTPQuantityValidatedAtBoundary(t *testing.T) {
	ledger, listingsRepo, usersRepo := seedStack(t, 10, listings.InventoryDate)
	router := newTestRouter(t, ledger, listingsRepo, usersRepo)

	for _, quantity := range []int{0, -1} {
		rec := postBooking(t, router, "u-1", map[string]any{
			"listing_id":   "l-1",
			"booking_date": "2026-09-10",
			"quantity":     quantity,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("quantity %d: expected 400, got %d", quantity, rec.Code)
		}
	}
}

func TestCreateBooking_HTTPConflictWhenFull(t *testing.T) {
	ledger, listingsRepo, usersRepo := seedStack(t, 1, listings.InventoryDate)
	router := newTestRouter(t, ledger, listingsRepo, usersRepo)

	first := postBooking(t, router, "u-1", map[string]any{
		"listing_id":   "l-1",
		"booking_date": "2026-09-10",
		"quantity":     1,
	})
	if first.Code != http.StatusCreated {
		t.Fatalf("seed booking failed: %d", first.Code)
	}

	second := postBooking(t, router, "u-1", map[string]any{
		"listing_id":   "l-1",
		"booking_date": "2026-09-10",
		"quantity":     1,
	})
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", second.Code, second.Body.String())
	}
	var resp struct {
		Remaining int `json:"remaining_capacity"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Remaining != 0 {
		t.Errorf("expected remaining 0 in rejection, got %d", resp.Remaining)
	}
}

func TestCreateBooking_HTTPSlotTypeMismatch(t *testing.T) {
	ledger, listingsRepo, usersRepo := seedStack(t, 5, listings.InventoryDate)
	router := newTestRouter(t, ledger, listingsRepo, usersRepo)

	rec := postBooking(t, router, "u-1", map[string]any{
		"listing_id":   "l-1",
		"booking_date": "2026-09-10",
		"time_slot":    "09:00",
		"quantity":     1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a slot on a date-based listing, got %d", rec.Code)
	}
}

func TestCreateBooking_HTTPPermissionDeniedIsForbidden(t *testing.T) {
	ledger, listingsRepo, usersRepo := seedStack(t, 5, listings.InventoryDate)
	router := newTestRouter(t, deniedLedger{ledger}, listingsRepo, usersRepo)

	rec := postBooking(t, router, "u-1", map[string]any{
		"listing_id":   "l-1",
		"booking_date": "2026-09-10",
		"quantity":     1,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 (fail closed), got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateBooking_HTTPUnknownListing(t *testing.T) {
	ledger, listingsRepo, usersRepo := seedStack(t, 5, listings.InventoryDate)
	router := newTestRouter(t, ledger, listingsRepo, usersRepo)

	rec := postBooking(t, router, "u-1", map[string]any{
		"listing_id":   "ghost",
		"booking_date": "2026-09-10",
		"quantity":     1,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCreateBooking_HTTPMissingTraveler(t *testing.T) {
	ledger, listingsRepo, usersRepo := seedStack(t, 5, listings.InventoryDate)
	router := newTestRouter(t, ledger, listingsRepo, usersRepo)

	rec := postBooking(t, router, "", map[string]any{
		"listing_id":   "l-1",
		"booking_date": "2026-09-10",
		"quantity":     1,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestListMine_HTTP(t *testing.T) {
	ledger, listingsRepo, usersRepo := seedStack(t, 5, listings.InventoryDate)
	router := newTestRouter(t, ledger, listingsRepo, usersRepo)

	created := postBooking(t, router, "u-1", map[string]any{
		"listing_id":   "l-1",
		"booking_date": "2026-09-10",
		"quantity":     2,
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("seed booking failed: %d", created.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/me/bookings", nil)
	req.Header.Set("X-Traveler-ID", "u-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Bookings []struct {
			Quantity int    `json:"quantity"`
			Status   string `json:"status"`
		} `json:"bookings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Bookings) != 1 || resp.Bookings[0].Quantity != 2 {
		t.Errorf("unexpected bookings payload: %+v", resp.Bookings)
	}
}
