package orchestrate

import "github.com/ssdeanx/ai-sdk-DM-sub007/id"

// ID is the primary identifier type for all orchestrate entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
