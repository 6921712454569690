// Package sound maps reward titles to audio files and plays them.
//
// The catalog is loaded once at startup and injected wherever it is needed;
// there is no lazily-initialized global state.
package sound
