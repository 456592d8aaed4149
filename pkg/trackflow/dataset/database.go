package dataset

import "sort"

// DataBase is a cell holding generic string attributes.
type DataBase struct {
	attrs map[string]string
}

// NewDataBase creates an empty attribute cell.
func NewDataBase() *DataBase {
	return &DataBase{attrs: make(map[string]string)}
}

// Kind implements Data.
func (db *DataBase) Kind() Kind { return KindDataBase }

// Get returns the attribute value for key.
func (db *DataBase) Get(key string) (string, bool) {
	v, ok := db.attrs[key]
	return v, ok
}

// Set stores an attribute value.
func (db *DataBase) Set(key, value string) {
	db.attrs[key] = value
}

// Delete removes an attribute.
func (db *DataBase) Delete(key string) {
	delete(db.attrs, key)
}

// Keys returns the attribute names in ascending order.
func (db *DataBase) Keys() []string {
	keys := make([]string, 0, len(db.attrs))
	for k := range db.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of attributes.
func (db *DataBase) Len() int {
	return len(db.attrs)
}

func (db *DataBase) cloneData() Data {
	c := NewDataBase()
	for k, v := range db.attrs {
		c.attrs[k] = v
	}
	return c
}
