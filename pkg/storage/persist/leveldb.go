package persist

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// entryPrefix namespaces cache entry values inside the database so the
// schema can grow other record kinds later.
var entryPrefix = []byte("e:")

// LevelDB is the on-disk KV backend.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) the database at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(append(entryPrefix, key...), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return val, err
}

func (l *LevelDB) Put(key, value []byte) error {
	return l.db.Put(append(entryPrefix, key...), value, nil)
}

func (l *LevelDB) Delete(key []byte) error {
	batch := new(leveldb.Batch)
	batch.Delete(append(entryPrefix, key...))
	return l.db.Write(batch, nil)
}

func (l *LevelDB) Walk(fn func(key, value []byte) error) error {
	it := l.db.NewIterator(util.BytesPrefix(entryPrefix), nil)
	defer it.Release()
	for it.Next() {
		if err := fn(it.Key()[len(entryPrefix):], it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}
