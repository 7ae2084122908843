package models

// Record is one immutable entry in the shared message log. Enc carries
// the real text, FakeEnc a decoy summary; both are opaque cipher blobs
// of identical shape so the stored document never marks which is real.
type Record struct {
	From    string `json:"from"`
	At      int64  `json:"at"`
	Enc     string `json:"enc"`
	FakeEnc string `json:"fakeEnc"`
}

// Document is the single shared aggregate: a versioned, insertion-ordered
// list of records. It is always read and written as a whole.
type Document struct {
	Version  int      `json:"version"`
	Messages []Record `json:"messages"`
}

// Empty returns a fresh document as written by reset and as assumed when
// the backing blob is absent or unparseable.
func Empty() Document {
	return Document{Version: 1, Messages: []Record{}}
}
