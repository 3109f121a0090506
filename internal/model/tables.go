package model

const (
	VisitorsTable      = "ChatVisitors"
	ConversationsTable = "ChatConversations"
	MessagesTable      = "ChatMessages"
	EventsTable        = "ChatEvents"
	LeadsTable         = "ChatLeads"
	ProductsTable      = "ChatProducts"
)

// PageVisit is one entry of a visitor's bounded page history.
type PageVisit struct {
	URL    string `dynamodbav:"url" json:"url"`
	Title  string `dynamodbav:"title" json:"title"`
	SeenAt int64  `dynamodbav:"seenAt" json:"seen_at"`
}

// CartItem is a snapshot row of the visitor's shop cart.
type CartItem struct {
	ProductID string `dynamodbav:"productId" json:"product_id"`
	Title     string `dynamodbav:"title" json:"title"`
	Qty       int    `dynamodbav:"qty" json:"qty"`
	Price     string `dynamodbav:"price" json:"price"`
	URL       string `dynamodbav:"url" json:"url"`
	Image     string `dynamodbav:"image" json:"image"`
}

type VisitorItem struct {
	VisitorID    string      `dynamodbav:"visitorId"`
	Name         string      `dynamodbav:"name,omitempty"`
	Email        string      `dynamodbav:"email,omitempty"`
	CurrentURL   string      `dynamodbav:"currentUrl,omitempty"`
	CurrentTitle string      `dynamodbav:"currentTitle,omitempty"`
	PageHistory  []PageVisit `dynamodbav:"pageHistory,omitempty"`
	Cart         []CartItem  `dynamodbav:"cart,omitempty"`
	UserAgent    string      `dynamodbav:"userAgent,omitempty"`
	Referrer     string      `dynamodbav:"referrer,omitempty"`
	CreatedAt    string      `dynamodbav:"createdAt"`
	LastSeenAt   string      `dynamodbav:"lastSeenAt"`
}

type LeadItem struct {
	LeadID     string `dynamodbav:"leadId"`
	VisitorID  string `dynamodbav:"visitorId"`
	Name       string `dynamodbav:"name"`
	Email      string `dynamodbav:"email"`
	Message    string `dynamodbav:"message"`
	CurrentURL string `dynamodbav:"currentUrl,omitempty"`
	CreatedAt  string `dynamodbav:"createdAt"`
}

// ProductItem backs the catalog lookup used for product cards and AI
// context. Kept deliberately flat so cards can be built without joins.
type ProductItem struct {
	ProductID string `dynamodbav:"productId"`
	Title     string `dynamodbav:"title"`
	Price     string `dynamodbav:"price"`
	Excerpt   string `dynamodbav:"excerpt,omitempty"`
	URL       string `dynamodbav:"url,omitempty"`
	Image     string `dynamodbav:"image,omitempty"`
	SKU       string `dynamodbav:"sku,omitempty"`
	InStock   bool   `dynamodbav:"inStock"`
}
