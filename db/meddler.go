package db

import (
	"errors"
	"fmt"
	"reflect"

	sqlite "github.com/mattn/go-sqlite3"
	"github.com/russross/meddler"
	"github.com/shieldedlabs/midenbridge/word"
)

// init registers tags to be used to read/write from SQL DBs using meddler
func init() {
	meddler.Default = meddler.SQLite
	meddler.Register("word", WordMeddler{})
}

func SQLiteErr(err error) (*sqlite.Error, bool) {
	sqliteErr := &sqlite.Error{}
	if ok := errors.As(err, sqliteErr); ok {
		return sqliteErr, true
	}
	if driverErr, ok := meddler.DriverErr(err); ok {
		return sqliteErr, errors.As(driverErr, sqliteErr)
	}
	return sqliteErr, false
}

// IsUniqueConstrainErr reports whether err is a sqlite constraint violation
// (primary key or unique index)
func IsUniqueConstrainErr(err error) bool {
	sqliteErr, ok := SQLiteErr(err)
	return ok && sqliteErr.Code == sqlite.ErrConstraint
}

// SlicePtrsToSlice converts any []*Foo to []Foo
func SlicePtrsToSlice(slice interface{}) interface{} {
	v := reflect.ValueOf(slice)
	vLen := v.Len()
	typ := v.Type().Elem().Elem()
	res := reflect.MakeSlice(reflect.SliceOf(typ), vLen, vLen)
	for i := 0; i < vLen; i++ {
		res.Index(i).Set(v.Index(i).Elem())
	}
	return res.Interface()
}

// WordMeddler encodes or decodes a word.Word to or from its hex string form
type WordMeddler struct{}

// PreRead is called before a Scan operation for fields that have the WordMeddler
func (w WordMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	// give a pointer to a byte buffer to grab the raw data
	return new(string), nil
}

// PostRead is called after a Scan operation for fields that have the WordMeddler
func (w WordMeddler) PostRead(fieldPtr, scanTarget interface{}) error {
	ptr, ok := scanTarget.(*string)
	if !ok {
		return errors.New("scanTarget is not *string")
	}
	if ptr == nil {
		return fmt.Errorf("WordMeddler.PostRead: nil pointer")
	}
	field, ok := fieldPtr.(*word.Word)
	if !ok {
		return errors.New("fieldPtr is not word.Word")
	}
	parsed, err := word.FromHex(*ptr)
	if err != nil {
		return fmt.Errorf("word.FromHex failed on %q: %w", *ptr, err)
	}
	*field = parsed
	return nil
}

// PreWrite is called before an Insert or Update operation for fields that have the WordMeddler
func (w WordMeddler) PreWrite(fieldPtr interface{}) (saveValue interface{}, err error) {
	field, ok := fieldPtr.(word.Word)
	if !ok {
		return nil, errors.New("fieldPtr is not word.Word")
	}
	return field.Hex(), nil
}
