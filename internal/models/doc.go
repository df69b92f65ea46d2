// Package models defines domain entities and persistence interfaces for discx.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): flat values normalized from Discogs responses
//   - [Credentials] : consumer pair plus optional OAuth token pair
//   - [PendingAuth] : request token state carried between the two halves of the handshake
//   - [Identity] : the authenticated Discogs user
//   - [Folder] : a collection folder
//   - [Release] : a release with artist/label/format collapsed to their first entry
//   - [Record] and [ExtractedRecord] : row template engine input and output
//
// 2. Persistent Entities: Database-backed models with timestamps and validation
//   - [WebSession] : server-side browser session state
//   - [ExportEntry] : history of generated CSV exports
//
// Persistent entities implement [Model]; [Repository] defines the shared data access operations.
package models
