// Stress drives concurrent PlaceOrder calls at one product with less
// stock than demand and checks that overselling is impossible.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/freshmart/ordering/internal/adapter/storage"
	"github.com/freshmart/ordering/internal/config"
	"github.com/freshmart/ordering/internal/core/service"
)

const (
	buyerCount   = 10
	initialStock = 3
	unitPrice    = "1.99"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	store := storage.NewMySQLStore(db)
	orderService := service.NewOrderService(store, nil)

	// Seed one contended product and a one-unit cart per buyer.
	productID := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO products (id, category_id, name, description, price, stock, created_at, updated_at)
		VALUES (?, '', 'stress-test-item', '', ?, ?, NOW(), NOW())`,
		productID, unitPrice, initialStock,
	)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	userIDs := make([]string, buyerCount)
	for i := range userIDs {
		userIDs[i] = fmt.Sprintf("stress-user-%d-%d", i, time.Now().UnixNano())
		cartID := uuid.NewString()
		if _, err := db.ExecContext(ctx, `
			INSERT INTO carts (id, user_id, created_at) VALUES (?, ?, NOW())`,
			cartID, userIDs[i]); err != nil {
			log.Fatalf("failed to seed cart: %v", err)
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at)
			VALUES (?, ?, ?, 1, NOW())`,
			uuid.NewString(), cartID, productID); err != nil {
			log.Fatalf("failed to seed cart item: %v", err)
		}
	}

	// Race all buyers.
	var successCount, insufficientCount, conflictCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for _, userID := range userIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()

			_, err := orderService.PlaceOrder(ctx, userID)
			var insufficientErr *service.InsufficientStockError
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.As(err, &insufficientErr):
				insufficientCount.Add(1)
			case errors.Is(err, service.ErrConcurrencyConflict):
				conflictCount.Add(1)
			default:
				log.Printf("unexpected error: %v", err)
			}
		}(userID)
	}

	wg.Wait()
	elapsed := time.Since(start)

	var remaining int
	db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, productID).Scan(&remaining)

	success := successCount.Load()
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:       %d\n", initialStock)
	fmt.Printf("Buyers:              %d\n", buyerCount)
	fmt.Printf("Successful:          %d\n", success)
	fmt.Printf("Insufficient stock:  %d\n", insufficientCount.Load())
	fmt.Printf("Conflicts:           %d\n", conflictCount.Load())
	fmt.Printf("Remaining stock:     %d\n", remaining)
	fmt.Printf("Duration:            %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && remaining == 0 {
		fmt.Printf("PASS: exactly %d orders succeeded and stock hit 0\n", initialStock)
	} else {
		fmt.Printf("FAIL: expected %d successes and 0 remaining, got %d/%d\n",
			initialStock, success, remaining)
	}
}
