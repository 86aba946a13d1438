// Package models defines domain entities and persistence interfaces for the album ranking service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [Album] : Album metadata as fetched from Spotify
//   - [SpotifyCredentials] : Decrypted token pair plus expiry for one user's Spotify link
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [User] : User accounts with authentication and display preferences
//   - [RankedAlbum] : A synced album carrying user-assigned rank and hidden state
//
// Persistent entities implement the Model interface providing ID generation, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
