// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database_test

import (
	"errors"
	"testing"

	"github.com/jgualp/eleccions-a-delegat/database"
	"github.com/jgualp/eleccions-a-delegat/database/models"
	"github.com/jgualp/eleccions-a-delegat/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var errTest = errors.New("test error")

func newTestDatabase(t *testing.T, dataDir string) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func TestNewDefaults(t *testing.T) {
	db, err := database.New(nil)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	assert.NotNil(t, db.Blob())
	assert.NotNil(t, db.Metadata())
	assert.NotNil(t, db.Logger())
	assert.Empty(t, db.DataDir())
}

func TestUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{BlobPlugin: "nonexistent"})
	require.Error(t, err)
	_, err = database.New(&database.Config{MetadataPlugin: "nonexistent"})
	require.Error(t, err)
}

func TestBlobHelpers(t *testing.T) {
	db := newTestDatabase(t, "")
	_, err := db.BlobGet([]byte("state:a:x"), nil)
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)

	require.NoError(t, db.BlobSet([]byte("state:a:x"), []byte("1"), nil))
	require.NoError(t, db.BlobSet([]byte("state:a:y"), []byte("2"), nil))
	require.NoError(t, db.BlobSet([]byte("state:b:x"), []byte("3"), nil))

	val, err := db.BlobGet([]byte("state:a:x"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	var keys []string
	var vals []string
	err = db.BlobIterate([]byte("state:a:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		vals = append(vals, string(value))
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"state:a:x", "state:a:y"}, keys)
	assert.Equal(t, []string{"1", "2"}, vals)

	err = db.BlobIterate([]byte("state:"), func(key, value []byte) error {
		return errTest
	}, nil)
	require.ErrorIs(t, err, errTest)

	require.NoError(t, db.BlobDelete([]byte("state:a:x"), nil))
	_, err = db.BlobGet([]byte("state:a:x"), nil)
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	db := newTestDatabase(t, "")
	txn := db.Transaction(false)
	defer txn.Release()
	assert.Nil(t, txn.Metadata())
	require.ErrorIs(
		t,
		db.BlobSet([]byte("k"), []byte("v"), txn),
		types.ErrReadOnlyTxn,
	)
	require.NoError(t, txn.Commit())
	// finished transactions are a no-op
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Rollback())
}

func TestTxnDoRollsBackBothStores(t *testing.T) {
	db := newTestDatabase(t, "")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.BlobSet([]byte("acct:x"), []byte("v"), txn); err != nil {
			return err
		}
		if err := db.SaveReceipt(&models.Receipt{ID: "r1"}, txn); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(t, err, errTest)

	_, err = db.BlobGet([]byte("acct:x"), nil)
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	r, err := db.GetReceipt("r1", nil)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestTxnDoCommitsBothStores(t *testing.T) {
	db := newTestDatabase(t, "")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.BlobSet([]byte("contract:c1"), []byte("v"), txn); err != nil {
			return err
		}
		if err := db.SaveCampaign(&models.Campaign{Address: "c1", Kind: "election"}, txn); err != nil {
			return err
		}
		return db.SaveReceipt(&models.Receipt{ID: "r1", Contract: "c1", Success: true}, txn)
	})
	require.NoError(t, err)

	_, err = db.BlobGet([]byte("contract:c1"), nil)
	require.NoError(t, err)
	c, err := db.GetCampaign("c1", nil)
	require.NoError(t, err)
	require.NotNil(t, c)
	campaigns, err := db.GetCampaigns("election", nil)
	require.NoError(t, err)
	assert.Len(t, campaigns, 1)
	receipts, err := db.GetReceipts(models.ReceiptFilter{Contract: "c1"}, nil)
	require.NoError(t, err)
	assert.Len(t, receipts, 1)

	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	metadataTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	assert.NotZero(t, blobTs)
	assert.Equal(t, blobTs, metadataTs)
}

func TestMetadataOnlyTxn(t *testing.T) {
	db := newTestDatabase(t, "")
	err := database.NewMetadataOnlyTxn(db).Do(func(txn *database.Txn) error {
		assert.Nil(t, txn.Blob())
		return db.SaveReceipt(&models.Receipt{ID: "failed", Error: "nope"}, txn)
	})
	require.NoError(t, err)
	r, err := db.GetReceipt("failed", nil)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "nope", r.Error)

	// the commit timestamp only moves with coordinated commits
	ts, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Zero(t, ts)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dataDir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.BlobSet([]byte("k"), []byte("v"), nil))
	// move the blob timestamp on its own
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(42, blobTxn))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dataDir})
	require.Error(t, err)
	require.NotNil(t, db)
	defer db.Close() //nolint:errcheck
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(42), tsErr.BlobTimestamp)
	assert.NotEqual(t, tsErr.BlobTimestamp, tsErr.MetadataTimestamp)
}

func TestPersistence(t *testing.T) {
	dataDir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.BlobSet([]byte("acct:x"), []byte("v"), txn); err != nil {
			return err
		}
		return db.SaveReceipt(&models.Receipt{ID: "r1"}, txn)
	}))
	require.NoError(t, db.Close())

	db = newTestDatabase(t, dataDir)
	assert.Equal(t, dataDir, db.DataDir())
	val, err := db.BlobGet([]byte("acct:x"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
	r, err := db.GetReceipt("r1", nil)
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestCloseStopsGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, db.BlobSet([]byte("k"), []byte("v"), nil))
	require.NoError(t, db.Close())
}
