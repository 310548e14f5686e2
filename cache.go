package imgtransform

import (
	"database/sql"
	"fmt"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// Cache stores converted bitmaps keyed on the SHA-1 of the source image and
// the options used. Bitmaps are stored compressed.
type Cache struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCache opens, creating if necessary, the cache database in file.
func NewCache(file string) (*Cache, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	// Batch workers share the handle; sqlite only allows one writer anyway
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS bitmap (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL, options TEXT NOT NULL, data BLOB NOT NULL, UNIQUE(sha1, options))"); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		db.Close()
		return nil, err
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &Cache{
		db:  db,
		enc: enc,
		dec: dec,
	}, nil
}

// Lookup returns the cached bitmap for the given source checksum and
// options, or nil if there isn't one.
func (c *Cache) Lookup(sha string, opts Options) ([]byte, error) {
	var data []byte
	switch err := c.db.QueryRow("SELECT data FROM bitmap WHERE sha1 = ? AND options = ?", sha, opts.String()).Scan(&data); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		b, err := c.dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("imgtransform: corrupt cache entry: %w", err)
		}
		return b, nil
	default:
		return nil, err
	}
}

// Store adds or replaces the bitmap for the given source checksum and
// options.
func (c *Cache) Store(sha string, opts Options, b []byte) error {
	if _, err := c.db.Exec("INSERT OR REPLACE INTO bitmap (sha1, options, data) VALUES (?, ?, ?)", sha, opts.String(), c.enc.EncodeAll(b, nil)); err != nil {
		return err
	}
	return nil
}

// Len returns the number of cached bitmaps.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM bitmap").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Clear removes every cached bitmap.
func (c *Cache) Clear() error {
	if _, err := c.db.Exec("DELETE FROM bitmap"); err != nil {
		return err
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}
