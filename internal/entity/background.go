package entity

// Background is a single background picture from the pool, loaded per request.
type Background struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Data  []byte `json:"-"`
}
