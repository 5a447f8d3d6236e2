//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestCheckout_RequiresAPIKey(t *testing.T) {
	id := insertProduct(t, productRow{
		sku: "CO-AUTH", name: "Mukwa bowl",
		active: true, trackStock: true, stock: 5,
		listUSD: "10.00",
	})

	payload := checkoutPayload{
		Currency:        "USD",
		Items:           []cartItemPayload{{ProductID: id, Quantity: 1}},
		ShippingAddress: shippingTo("tariro@example.test"),
	}

	resp := doPost(t, "/api/cart/checkout", payload)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no key: expected 401, got %d", resp.StatusCode)
	}

	resp2 := doPostWithAuth(t, "/api/cart/checkout", payload, "wrong-key")
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong key: expected 401, got %d", resp2.StatusCode)
	}

	if stock := productStock(t, id); stock != 5 {
		t.Errorf("stock changed on rejected checkout: %d", stock)
	}
}

func TestCheckout_CreatesOrderAndDecrementsStock(t *testing.T) {
	id := insertProduct(t, productRow{
		sku: "CO-SALE", name: "Mbira, student model",
		active: true, trackStock: true, stock: 5,
		listUSD: "10.00", listZWL: "35000", listZAR: "180.00",
		saleUSD: "8.00",
	})

	resp := doPostWithAuth(t, "/api/cart/checkout", checkoutPayload{
		Currency:        "USD",
		Items:           []cartItemPayload{{ProductID: id, Quantity: 3}},
		ShippingMethod:  "courier",
		ShippingCost:    map[string]string{"usd": "5.00", "zwl": "0", "zar": "0"},
		ShippingAddress: shippingTo("tariro@example.test"),
	}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResult](t, resp)
	if order.Number == "" {
		t.Fatal("order number missing")
	}
	if order.Status != "pending" || order.PaymentStatus != "pending" {
		t.Errorf("status: got %s/%s", order.Status, order.PaymentStatus)
	}
	if order.Currency != "USD" {
		t.Errorf("currency: got %s", order.Currency)
	}

	// Sale price applies: 3 x 8.00 plus 5.00 shipping.
	assertAmount(t, "subtotal.usd", order.Subtotal.USD, "24.00")
	assertAmount(t, "discount.usd", order.Discount.USD, "0")
	assertAmount(t, "shipping.usd", order.ShippingCost.USD, "5.00")
	assertAmount(t, "total.usd", order.Total.USD, "29.00")

	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	item := order.Items[0]
	if item.ProductSKU != "CO-SALE" || item.ProductName != "Mbira, student model" {
		t.Errorf("snapshot: got %q/%q", item.ProductSKU, item.ProductName)
	}
	assertAmount(t, "item unit_price.usd", item.UnitPrice.USD, "8.00")

	if stock := productStock(t, id); stock != 2 {
		t.Errorf("stock after checkout: got %d, want 2", stock)
	}

	// The order is retrievable by its public number.
	getResp := doGet(t, "/api/orders/"+order.Number)
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("fetch order: expected 200, got %d", getResp.StatusCode)
	}
	fetched := decodeJSON[orderResult](t, getResp)
	if fetched.Number != order.Number {
		t.Errorf("fetched number: got %s", fetched.Number)
	}
	assertAmount(t, "fetched total.usd", fetched.Total.USD, "29.00")
}

func TestCheckout_ValidationFailureLeavesStockUntouched(t *testing.T) {
	id := insertProduct(t, productRow{
		sku: "CO-SHORT", name: "Stone eagle",
		active: true, trackStock: true, stock: 2,
		listUSD: "60.00",
	})

	resp := doPostWithAuth(t, "/api/cart/checkout", checkoutPayload{
		Currency:        "USD",
		Items:           []cartItemPayload{{ProductID: id, Quantity: 3}},
		ShippingAddress: shippingTo("tariro@example.test"),
	}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	failure := decodeJSON[checkoutFailure](t, resp)
	if len(failure.Errors) != 1 || failure.Errors[0].Reason != "insufficient_stock" {
		t.Fatalf("got %+v", failure.Errors)
	}

	if stock := productStock(t, id); stock != 2 {
		t.Errorf("stock after failed checkout: got %d, want 2", stock)
	}
}

func TestCheckout_PromoApplied(t *testing.T) {
	id := insertProduct(t, productRow{
		sku: "CO-PROMO", name: "Tonga stool",
		active: true, trackStock: true, stock: 5,
		listUSD: "24.00",
	})

	resp := doPostWithAuth(t, "/api/cart/checkout", checkoutPayload{
		Currency:        "USD",
		Items:           []cartItemPayload{{ProductID: id, Quantity: 1}},
		PromoCode:       "welcome10",
		ShippingAddress: shippingTo("tariro@example.test"),
	}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResult](t, resp)
	assertAmount(t, "subtotal.usd", order.Subtotal.USD, "24.00")
	assertAmount(t, "discount.usd", order.Discount.USD, "2.40")
	assertAmount(t, "total.usd", order.Total.USD, "21.60")

	if used := promoUsedCount(t, "WELCOME10"); used < 1 {
		t.Errorf("used_count not incremented: %d", used)
	}
}

func TestCheckout_PromoMinimumNotMet(t *testing.T) {
	id := insertProduct(t, productRow{
		sku: "CO-MIN", name: "Seed bracelet",
		active: true, trackStock: true, stock: 5,
		listUSD: "10.00",
	})

	resp := doPostWithAuth(t, "/api/cart/checkout", checkoutPayload{
		Currency:        "USD",
		Items:           []cartItemPayload{{ProductID: id, Quantity: 1}},
		PromoCode:       "ZIMSAVE5",
		ShippingAddress: shippingTo("tariro@example.test"),
	}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	if stock := productStock(t, id); stock != 5 {
		t.Errorf("stock after rejected promo: got %d, want 5", stock)
	}
}

func TestCheckout_VariationStock(t *testing.T) {
	id := insertProduct(t, productRow{
		sku: "CO-VAR", name: "Basket with sizes",
		active: true, trackStock: true, stock: 40,
		listUSD: "28.00",
	})
	largeID := insertVariation(t, id, "Size", "Large", 3, "8.00")

	resp := doPostWithAuth(t, "/api/cart/checkout", checkoutPayload{
		Currency:        "USD",
		Items:           []cartItemPayload{{ProductID: id, VariationID: largeID, Quantity: 2}},
		ShippingAddress: shippingTo("tariro@example.test"),
	}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResult](t, resp)
	assertAmount(t, "subtotal.usd", order.Subtotal.USD, "72.00")
	if order.Items[0].VariationValue != "Large" {
		t.Errorf("variation snapshot: got %q", order.Items[0].VariationValue)
	}

	// The variation row is decremented, the parent row is not.
	if stock := variationStock(t, largeID); stock != 1 {
		t.Errorf("variation stock: got %d, want 1", stock)
	}
	if stock := productStock(t, id); stock != 40 {
		t.Errorf("parent stock: got %d, want 40", stock)
	}
}

func TestCheckout_ConcurrentOrdersNeverOversell(t *testing.T) {
	id := insertProduct(t, productRow{
		sku: "CO-RACE", name: "Limited print",
		active: true, trackStock: true, stock: 5,
		listUSD: "15.00",
	})

	body, err := json.Marshal(checkoutPayload{
		Currency:        "USD",
		Items:           []cartItemPayload{{ProductID: id, Quantity: 1}},
		ShippingAddress: shippingTo("race@example.test"),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	var created, rejected atomic.Int32
	g, ctx := errgroup.WithContext(context.Background())
	for range 8 {
		g.Go(func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/cart/checkout", bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Api-Key", testAPIKey)

			resp, err := httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusUnprocessableEntity:
				rejected.Add(1)
			default:
				return fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent checkout: %v", err)
	}

	if got := created.Load(); got != 5 {
		t.Errorf("created orders: got %d, want 5", got)
	}
	if got := rejected.Load(); got != 3 {
		t.Errorf("rejected orders: got %d, want 3", got)
	}
	if stock := productStock(t, id); stock != 0 {
		t.Errorf("final stock: got %d, want 0", stock)
	}
}

func TestCheckout_SingleUsePromo(t *testing.T) {
	id := insertProduct(t, productRow{
		sku: "CO-ONCE", name: "Collector mask",
		active: true, trackStock: true, stock: 10,
		listUSD: "40.00",
	})

	payload := checkoutPayload{
		Currency:        "USD",
		Items:           []cartItemPayload{{ProductID: id, Quantity: 1}},
		PromoCode:       "SINGLEUSE25",
		ShippingAddress: shippingTo("tariro@example.test"),
	}

	resp := doPostWithAuth(t, "/api/cart/checkout", payload, testAPIKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first use: expected 201, got %d", resp.StatusCode)
	}
	order := decodeJSON[orderResult](t, resp)
	assertAmount(t, "discount.usd", order.Discount.USD, "10.00")

	resp2 := doPostWithAuth(t, "/api/cart/checkout", payload, testAPIKey)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("second use: expected 422, got %d", resp2.StatusCode)
	}

	// The failed second attempt reserves nothing.
	if stock := productStock(t, id); stock != 9 {
		t.Errorf("stock: got %d, want 9", stock)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/orders/NOSUCHORDR")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
