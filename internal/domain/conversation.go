package domain

// HistoryRecord is the durable form of one chat history: the serialized
// message sequence stored under a single key.
type HistoryRecord struct {
	PK        string
	SK        string
	Key       string
	Payload   string
	UpdatedAt string
	TTL       int64
}
