package domain

import "time"

// Cart is one user's cart. Items are unique per (cart, product).
type Cart struct {
	ID        string
	UserID    string
	Items     []CartItem
	CreatedAt time.Time
}

type CartItem struct {
	ID          string
	CartID      string
	ProductID   string
	ProductName string
	Quantity    int
	CreatedAt   time.Time
}
