/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package cantstop implements the rules of Can't Stop, sold here as Peak
// Pursuit.
//
// Players take turns rolling four dice and splitting them into two pairs.
// Each pair's sum names a column from 2 to 12, and a neutral marker climbs
// that column. A player may keep rolling or hold, turning their neutral
// markers into permanent pieces. A roll that offers no usable column is a
// bust and forfeits the turn's progress. Holding a marker at the top of a
// column locks it, and the first player to lock three columns wins.
//
// The engine performs no I/O. Each operation takes a GameState and returns
// the next one, so callers only need to serialize operations per game.
package cantstop
