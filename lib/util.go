package lib

import (
	"encoding"
	"encoding/binary"
	"encoding/hex"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"runtime/debug"

	"github.com/goccy/go-json"
)

// RegisteredPageables is a global slice of registered pageables for generic unmarshalling
var RegisteredPageables = make(map[string]Pageable)

// Page is a pagination wrapper over a slice of data
type Page struct {
	PageParams          // the input parameters for the page
	Results    Pageable `json:"results"`    // the actual returned array of items
	Type       string   `json:"type"`       // the type of the page
	Count      int      `json:"count"`      // count of items included in the page
	TotalPages int      `json:"totalPages"` // number of pages that exist based on these page parameters
	TotalCount int      `json:"totalCount"` // count of items that exist
}

// PageParams are the input parameters to calculate the proper page
type PageParams struct {
	PageNumber int `json:"pageNumber"`
	PerPage    int `json:"perPage"`
}

// Pageable() is a simple interface that represents Page structures
type Pageable interface{ New() Pageable }

// NewPage() returns a new instance of the Page object from the params and pageType
func NewPage(p PageParams, pageType string) *Page { return &Page{PageParams: p, Type: pageType} }

// Load() fills a page from a prefix iterator of the store
func (p *Page) Load(storePrefix []byte, reverse bool, results Pageable, db RStoreI, callback func(k, v []byte) ErrorI) (err ErrorI) {
	var it IteratorI
	// set the page results so that even if it's a zero page, it will have a castable type
	p.Results = results
	if reverse {
		it, err = db.RevIterator(storePrefix)
	} else {
		it, err = db.Iterator(storePrefix)
	}
	if err != nil {
		return err
	}
	defer it.Close()
	pageStartIndex, countOnly := p.skipToIndex(), false
	for ; it.Valid(); it.Next() {
		// pre-increment so every visited item is counted
		p.TotalCount++
		if p.TotalCount <= pageStartIndex || countOnly {
			continue
		}
		if p.TotalCount == pageStartIndex+p.PerPage+1 {
			countOnly = true
			continue
		}
		if e := callback(it.Key(), it.Value()); e != nil {
			return e
		}
		p.Count++
	}
	p.TotalPages = int(math.Ceil(float64(p.TotalCount) / float64(p.PerPage)))
	return
}

// LoadArray() fills a page from a slice
func (p *Page) LoadArray(slice any, results Pageable, callback func(i any) ErrorI) (err ErrorI) {
	arr := reflect.ValueOf(slice)
	if arr.Kind() != reflect.Slice {
		return ErrInvalidArgument()
	}
	p.Results = results
	pageStartIndex, size, countOnly := p.skipToIndex(), arr.Len(), false
	for p.TotalCount < size {
		p.TotalCount++
		if p.TotalCount <= pageStartIndex || countOnly {
			continue
		}
		if p.TotalCount == pageStartIndex+p.PerPage+1 {
			countOnly = true
			continue
		}
		if e := callback(arr.Index(p.TotalCount - 1).Interface()); e != nil {
			return e
		}
		p.Count++
	}
	p.TotalPages = int(math.Ceil(float64(p.TotalCount) / float64(p.PerPage)))
	return
}

// skipToIndex() sanity checks params and then determines the first index of the page
func (p *PageParams) skipToIndex() int {
	defaultPerPage, maxPerPage := 10, 5000
	if p.PerPage <= 0 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	// start page count at 1 not 0
	if p.PageNumber <= 0 {
		p.PageNumber = 1
	}
	return (p.PageNumber - 1) * p.PerPage
}

// UnmarshalJSON() overrides the unmarshalling logic of the Page for registered pageables
func (p *Page) UnmarshalJSON(b []byte) error {
	var j jsonPage
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	m, ok := RegisteredPageables[j.Type]
	if !ok {
		return ErrUnknownPageable(j.Type)
	}
	pageable := m.New()
	if err := json.Unmarshal(j.Results, pageable); err != nil {
		return err
	}
	*p = Page{
		PageParams: j.PageParams,
		Results:    pageable,
		Type:       j.Type,
		Count:      j.Count,
		TotalPages: j.TotalPages,
		TotalCount: j.TotalCount,
	}
	return nil
}

// jsonPage is the internal structure for custom json for the Page structure
type jsonPage struct {
	PageParams
	Results    json.RawMessage `json:"results"`
	Type       string          `json:"type"`
	Count      int             `json:"count"`
	TotalPages int             `json:"totalPages"`
	TotalCount int             `json:"totalCount"`
}

// Marshal() serializes a state object into its canonical binary form
func Marshal(message encoding.BinaryMarshaler) ([]byte, ErrorI) {
	bz, err := message.MarshalBinary()
	if err != nil {
		return nil, ErrMarshal(err)
	}
	return bz, nil
}

// Unmarshal() deserializes canonical binary bytes into the state object
func Unmarshal(data []byte, ptr encoding.BinaryUnmarshaler) ErrorI {
	if data == nil || ptr == nil {
		return nil
	}
	if err := ptr.UnmarshalBinary(data); err != nil {
		return ErrUnmarshal(err)
	}
	return nil
}

// MarshalJSON() serializes a message into a JSON byte slice
func MarshalJSON(message any) ([]byte, ErrorI) {
	bz, err := json.Marshal(message)
	if err != nil {
		return nil, ErrJSONMarshal(err)
	}
	return bz, nil
}

// MarshalJSONIndent() serializes a message into an indented JSON byte slice
func MarshalJSONIndent(message any) ([]byte, ErrorI) {
	bz, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return nil, ErrJSONMarshal(err)
	}
	return bz, nil
}

// MarshalJSONIndentString() serializes a message into an indented JSON string
func MarshalJSONIndentString(message any) (string, ErrorI) {
	bz, err := MarshalJSONIndent(message)
	return string(bz), err
}

// UnmarshalJSON() deserializes a JSON byte slice into the specified object
func UnmarshalJSON(bz []byte, ptr any) ErrorI {
	if err := json.Unmarshal(bz, ptr); err != nil {
		return ErrJSONUnmarshal(err)
	}
	return nil
}

// NewJSONFromFile() reads a json object from file
func NewJSONFromFile(o any, dataDirPath, filePath string) ErrorI {
	bz, err := os.ReadFile(filepath.Join(dataDirPath, filePath))
	if err != nil {
		return ErrReadFile(err)
	}
	return UnmarshalJSON(bz, o)
}

// SaveJSONToFile() saves a json object to a file
func SaveJSONToFile(j any, dataDirPath, filePath string) ErrorI {
	bz, err := MarshalJSONIndent(j)
	if err != nil {
		return err
	}
	if e := os.WriteFile(filepath.Join(dataDirPath, filePath), bz, os.ModePerm); e != nil {
		return ErrWriteFile(e)
	}
	return nil
}

// BytesToString() converts a byte slice to a hexadecimal string
func BytesToString(b []byte) string { return hex.EncodeToString(b) }

// StringToBytes() converts a hexadecimal string back into a byte slice
func StringToBytes(s string) ([]byte, ErrorI) {
	bz, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrStringToBytes(err)
	}
	return bz, nil
}

// BytesToTruncatedString() converts a byte slice to a shortened hex string for logging
func BytesToTruncatedString(b []byte) string {
	if len(b) <= 5 {
		return BytesToString(b)
	}
	return BytesToString(b[:5])
}

// HexBytes represents a byte slice that can be marshaled and unmarshalled as hex strings
type HexBytes []byte

// String() returns the HexBytes as a hexadecimal string
func (x HexBytes) String() string { return BytesToString(x) }

// MarshalJSON() serializes the HexBytes to a JSON byte slice
func (x HexBytes) MarshalJSON() ([]byte, error) { return json.Marshal(BytesToString(x)) }

// UnmarshalJSON() deserializes a JSON byte slice into HexBytes
func (x *HexBytes) UnmarshalJSON(b []byte) (err error) {
	var s string
	if err = json.Unmarshal(b, &s); err != nil {
		return err
	}
	bz, e := StringToBytes(s)
	if e != nil {
		return e
	}
	*x = bz
	return
}

// CatchPanic() catches any panic in the function call or child function calls
func CatchPanic(l LoggerI) {
	if r := recover(); r != nil {
		l.Errorf("%v\n%s", r, string(debug.Stack()))
	}
}

// JoinLenPrefix() appends the items together separated by a single byte to represent the length of the segment
func JoinLenPrefix(toAppend ...[]byte) (res []byte) {
	for _, item := range toAppend {
		if item == nil {
			continue
		}
		res = append(append(res, byte(len(item))), item...)
	}
	return
}

// DecodeLengthPrefixed() decodes a key that is delimited by the length of the segment in a single byte
func DecodeLengthPrefixed(key []byte) (segments [][]byte) {
	for i := 0; i < len(key); {
		length := int(key[i])
		i++
		if i+length > len(key) {
			panic("corrupt or incomplete key")
		}
		segments = append(segments, key[i:i+length])
		i += length
	}
	return
}

// Uint64ToBytes() encodes a uint64 as 8 big endian bytes so keys sort numerically
func Uint64ToBytes(u uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u)
	return b
}

// BytesToUint64() decodes 8 big endian bytes
func BytesToUint64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// DeDuplicator is a generic structure that serves as a simple anti-duplication check
type DeDuplicator[T comparable] struct {
	m map[T]struct{}
}

// NewDeDuplicator constructs a new object reference to a DeDuplicator
func NewDeDuplicator[T comparable]() *DeDuplicator[T] {
	return &DeDuplicator[T]{m: make(map[T]struct{})}
}

// Found checks for an existing entry and adds it to the map if it's not present
func (d *DeDuplicator[T]) Found(k T) bool {
	if _, exists := d.m[k]; exists {
		return true
	}
	d.m[k] = struct{}{}
	return false
}
