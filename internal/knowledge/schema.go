package knowledge

// Collection names.
const (
	CollectionFactoid     = "Factoid"
	CollectionSystem      = "System"
	CollectionObservation = "Observation"
	CollectionInteraction = "Interaction"
	CollectionUser        = "User"
)

type collectionSpec struct {
	name        string
	description string
}

var schema = []collectionSpec{
	{CollectionUser, "Stores information related to individual users"},
	{CollectionFactoid, "Stores pieces of knowledge the bot can refer to"},
	{CollectionInteraction, "Logs interactions between users and the bot"},
	{CollectionObservation, "Captures and categorizes new posts and comments"},
	{CollectionSystem, "Stores prompts, model settings and other system-level text"},
}

// Collections lists every collection EnsureSchema creates.
func Collections() []string {
	names := make([]string, len(schema))
	for i, c := range schema {
		names[i] = c.name
	}
	return names
}

// Metadata keys of factoid documents. The document content is the factoid content.
const (
	metaSummary      = "summary"
	metaAuthor       = "author"
	metaSource       = "source"
	metaCategory     = "category"
	metaSuggestedBy  = "suggested_by"
	metaReviewStatus = "review_status"
	metaCreatedAt    = "created_at"

	// System documents.
	metaName    = "name"
	metaVersion = "version"
)
