package usecase

// GenericCollection receives a copy of every indexed chunk so
// cross-category queries have a single place to search.
const GenericCollection = "document_chunks"

var categoryCollections = map[string]string{
	"resume":   "resume_chunks",
	"contract": "contract_chunks",
	"review":   "review_chunks",
	"policy":   "policy_chunks",
	"generic":  GenericCollection,
}

// collectionPriorities weight ranking by source collection; unknown
// collections rank below every known one.
var collectionPriorities = map[string]float64{
	"resume_chunks":   1.0,
	"contract_chunks": 0.9,
	"review_chunks":   0.8,
	"policy_chunks":   0.7,
	"document_chunks": 0.6,
}

const defaultCollectionPriority = 0.5

// CollectionForCategory maps a document category to its vector
// collection. Unknown categories land in the generic collection.
func CollectionForCategory(category string) string {
	if c, ok := categoryCollections[category]; ok {
		return c
	}
	return GenericCollection
}

// AllCollections returns every known collection in priority order.
func AllCollections() []string {
	return []string{
		"resume_chunks", "contract_chunks", "review_chunks",
		"policy_chunks", "document_chunks",
	}
}

func collectionPriority(collection string) float64 {
	if p, ok := collectionPriorities[collection]; ok {
		return p
	}
	return defaultCollectionPriority
}
