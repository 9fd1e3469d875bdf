package storage

// Interface abstracts where corpus snapshots and topic extracts live
type Interface interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
}
