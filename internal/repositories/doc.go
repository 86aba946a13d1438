// Package repositories provides the persistence layer for the album ranking service.
//
// [UserRepository] manages accounts, [CredentialRepository] manages the
// encrypted Spotify token row (one per user), and [AlbumRepository] manages
// synced albums with their user-assigned rank and hidden state.
package repositories
