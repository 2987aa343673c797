package catalog

import (
	"encoding/binary"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encodeProduct(p Product) ([]byte, error) {
	return json.Marshal(p)
}

func decodeProduct(b []byte) (Product, error) {
	var p Product
	if err := json.Unmarshal(b, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// idKey is big-endian so that bucket iteration yields ascending ids.
func idKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}
