package orders

import (
	"context"
	"math"

	"github.com/SanteonNL/storefront/cmd/storefront/datasource"
	"github.com/SanteonNL/storefront/cmd/storefront/filter"
	"github.com/SanteonNL/storefront/cmd/storefront/query"
	"github.com/SanteonNL/storefront/models/shop"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// Line is one requested product of a new order.
type Line struct {
	ProductID int64
	Quantity  int
}

type PlaceOrderInput struct {
	UserID          int64
	Lines           []Line
	ShippingAddress *string
	BillingAddress  *string
	Notes           *string
}

// Publisher is told about every committed order.
type Publisher interface {
	OrderPlaced(order shop.Order)
}

// OrderPage is one page of a user's orders.
type OrderPage struct {
	Orders     []shop.Order
	Pagination query.Pagination
}

type Service struct {
	ds        *datasource.DataSource
	repo      *Repository
	publisher Publisher
	log       zerolog.Logger
}

func NewService(ds *datasource.DataSource, publisher Publisher, log zerolog.Logger) *Service {
	return &Service{
		ds:        ds,
		repo:      NewRepository(ds.DB()),
		publisher: publisher,
		log:       log.With().Str("component", "orders").Logger(),
	}
}

// PlaceOrder stores an order for in.UserID in a single transaction: every
// product row is locked and checked, the order and its lines are inserted
// and the stock is decremented. Any failure leaves the database untouched.
// A *StockError is returned when a line cannot be served.
//
// Rows are locked in ascending id order whatever the line order, so two
// concurrent orders over the same products cannot deadlock.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*shop.Order, error) {
	var order shop.Order

	err := s.ds.WithTransaction(ctx, "place order", func(tx *sqlx.Tx) error {
		var (
			total    float64
			items    = make([]shop.OrderItem, 0, len(in.Lines))
			reserved = make(map[int64]int, len(in.Lines))
		)

		products, err := lockProducts(ctx, tx, in.Lines)
		if err != nil {
			return err
		}

		for _, line := range in.Lines {
			product := products[line.ProductID]

			if !product.InStock() {
				return &StockError{Err: ErrOutOfStock, ProductID: product.ID, Product: product.Name, Requested: line.Quantity}
			}
			reserved[product.ID] += line.Quantity
			if !product.HasStock(reserved[product.ID]) {
				return &StockError{
					Err:       ErrInsufficientStock,
					ProductID: product.ID,
					Product:   product.Name,
					Available: product.Quantity,
					Requested: reserved[product.ID],
				}
			}

			total += product.Price * float64(line.Quantity)
			items = append(items, shop.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				Price:       product.Price,
			})
		}

		order = shop.Order{
			UserID:          in.UserID,
			TotalPrice:      math.Round(total*100) / 100,
			Status:          shop.StatusPending,
			ShippingAddress: in.ShippingAddress,
			BillingAddress:  in.BillingAddress,
			Notes:           in.Notes,
		}
		if err := insertOrder(ctx, tx, &order); err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
			if err := insertItem(ctx, tx, items[i]); err != nil {
				return err
			}
			if err := decrementStock(ctx, tx, items[i].ProductID, items[i].Quantity); err != nil {
				return err
			}
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("order_id", order.ID).
		Int64("user_id", order.UserID).
		Int("lines", len(order.Items)).
		Msg("Placed order")

	if s.publisher != nil {
		s.publisher.OrderPlaced(order)
	}
	return &order, nil
}

// lockProducts locks the distinct products of lines in ascending id order.
func lockProducts(ctx context.Context, tx *sqlx.Tx, lines []Line) (map[int64]*shop.Product, error) {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if !slices.Contains(ids, line.ProductID) {
			ids = append(ids, line.ProductID)
		}
	}
	slices.Sort(ids)

	products := make(map[int64]*shop.Product, len(ids))
	for _, id := range ids {
		product, err := lockProduct(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		products[id] = product
	}
	return products, nil
}

// OrdersQuery builds the listing query of userID's orders narrowed by the
// order filters, newest first unless a sort was requested.
func OrdersQuery(userID int64, r *filter.Request) *query.Query {
	q := query.New("orders").Where("user_id", userID)
	filter.Apply(filter.OrderSpec, r, q)
	if !q.HasOrder() {
		q.OrderBy("created_at", query.Desc)
	}
	return q
}

func (s *Service) ListOrders(ctx context.Context, userID int64, r *filter.Request, page, perPage int) (OrderPage, error) {
	if perPage <= 0 {
		perPage = query.DefaultPerPage
	}
	if page < 1 {
		page = 1
	}

	orders, total, err := s.repo.ListOrders(ctx, OrdersQuery(userID, r), page, perPage)
	if err != nil {
		return OrderPage{}, err
	}
	return OrderPage{
		Orders:     orders,
		Pagination: query.Paginate(page, perPage, total),
	}, nil
}

// GetOrder returns order id when userID owns it.
func (s *Service) GetOrder(ctx context.Context, userID, id int64) (*shop.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrForbidden
	}
	return order, nil
}
