// Package store defines the local post collection and the remote backends it is
// reconciled with, together with the error codes shared by both.
//
// Key Components:
//
//   - IPostStore: the durable local collection. Reads fail soft to an empty
//     collection, writes surface a RetCStorageFailure error when the storage rejects
//     them.
//
//   - IBackend: the remote side, one of three kinds (local cache, remote file,
//     remote table). Capabilities are queried with SupportsFeature, so the reconcile
//     layer never switches on the kind.
//
//   - Error System: *Error carries a RetCode and an optional cause. Use IsCode to test
//     for a code through wrapped errors.
//
// Implementations:
//
//   - Local Store (lstore): one blob in a db.KVDB.
//   - Remote backends live in remote/client (snapshot file, REST table).
package store
