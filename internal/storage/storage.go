package storage

import (
	"context"
	"errors"

	"github.com/listaszap/listaszap/internal/models"
)

// ErrNotFound is returned when an id does not resolve in any scope the
// session can see (owned or shared/member-of).
var ErrNotFound = errors.New("not found")

// ErrInvalid marks input rejected by a model invariant. The API maps it to
// a client error instead of a server failure.
var ErrInvalid = errors.New("invalid input")

// Store is the storage contract implemented identically by the local
// (SQLite key/value) and remote (Postgres) drivers. Every call takes the
// session it acts for; drivers hold no ambient user state.
type Store interface {
	// Categories
	GetCategories(ctx context.Context, sess models.Session) ([]models.Category, error)
	GetCategoriesByIDs(ctx context.Context, sess models.Session, ids []string) ([]models.Category, error)
	CreateCategory(ctx context.Context, sess models.Session, in CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, sess models.Session, id string, patch CategoryPatch) (*models.Category, error)
	DeleteCategory(ctx context.Context, sess models.Session, id string) error

	// Catalog items
	GetItems(ctx context.Context, sess models.Session) ([]models.Item, error)
	GetItemsByIDs(ctx context.Context, sess models.Session, ids []string) ([]models.Item, error)
	CreateItem(ctx context.Context, sess models.Session, in ItemInput) (*models.Item, error)
	UpdateItem(ctx context.Context, sess models.Session, id string, patch ItemPatch) (*models.Item, error)
	DeleteItem(ctx context.Context, sess models.Session, id string) error

	// Contacts
	GetContacts(ctx context.Context, sess models.Session) ([]models.Contact, error)
	CreateContact(ctx context.Context, sess models.Session, in ContactInput) (*models.Contact, error)
	UpdateContact(ctx context.Context, sess models.Session, id string, patch ContactPatch) (*models.Contact, error)
	DeleteContact(ctx context.Context, sess models.Session, id string) error

	// Lists
	GetLists(ctx context.Context, sess models.Session) ([]models.ShoppingList, error)
	GetList(ctx context.Context, sess models.Session, id string) (*models.ShoppingList, error)
	CreateList(ctx context.Context, sess models.Session, in CreateListInput) (*models.ShoppingList, error)
	UpdateList(ctx context.Context, sess models.Session, id string, patch ListPatch) (*models.ShoppingList, error)
	PromoteListToShared(ctx context.Context, sess models.Session, id string) (*models.ShoppingList, error)
	DeleteList(ctx context.Context, sess models.Session, id string) error

	// List lines. All mutations re-read and return the updated parent list.
	AddItemToList(ctx context.Context, sess models.Session, listID string, in ListItemInput) (*models.ShoppingList, error)
	UpdateListItem(ctx context.Context, sess models.Session, listID, lineID string, patch ListItemPatch) (*models.ShoppingList, error)
	ToggleListItem(ctx context.Context, sess models.Session, listID, lineID string, checked bool) (*models.ShoppingList, error)
	DeleteListItem(ctx context.Context, sess models.Session, listID, lineID string) error

	// Charges. Idempotent upsert; backward transitions are ignored so the
	// stored status is monotonic.
	UpdateMemberChargeStatus(ctx context.Context, sess models.Session, listID, memberKey string, status models.ChargeStatus, proofName string) (*models.ShoppingList, error)
}

// CategoryInput creates a category.
type CategoryInput struct {
	Name  string
	Color string
}

// CategoryPatch partially updates a category; nil fields are untouched.
type CategoryPatch struct {
	Name  *string
	Color *string
}

// ItemInput creates a catalog item.
type ItemInput struct {
	Name        string
	CategoryID  string
	Price       float64
	DefaultUnit models.Unit
	DefaultQty  float64
}

// ItemPatch partially updates a catalog item.
type ItemPatch struct {
	Name        *string
	CategoryID  *string
	Price       *float64
	DefaultUnit *models.Unit
	DefaultQty  *float64
}

// ContactInput creates a contact.
type ContactInput struct {
	Name  string
	Phone string
}

// ContactPatch partially updates a contact.
type ContactPatch struct {
	Name  *string
	Phone *string
}

// CreateListInput creates a list. Type defaults to personal. InitialItems
// are catalog item ids; each becomes an unchecked line with quantity 1.
type CreateListInput struct {
	Name                string
	Description         string
	Type                models.ListType
	Members             []models.Member
	InitialItems        []string
	SplitEnabled        bool
	IncludeOwnerInSplit bool
}

// ListPatch partially updates list metadata, membership and split settings.
type ListPatch struct {
	Name                 *string
	Description          *string
	Type                 *models.ListType
	Members              *[]models.Member
	SplitEnabled         *bool
	IncludeOwnerInSplit  *bool
	AllowMembersToInvite *bool
}

// ListItemInput adds a line to a list.
type ListItemInput struct {
	ItemID    string
	Quantity  float64
	Price     float64
	Checked   bool
	Unit      models.Unit
	CreatedBy string
}

// ListItemPatch partially updates a list line.
type ListItemPatch struct {
	Quantity *float64
	Price    *float64
	Checked  *bool
	Unit     *models.Unit
}
