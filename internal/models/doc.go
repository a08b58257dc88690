// Package models defines the data model for the share mirroring service.
//
// A [Task] binds one remote share subtree to one destination folder in the
// owner's cloud storage and carries the synchronization state the lifecycle
// controller advances on every run: progress counters, retry bookkeeping,
// match rules, and cron scheduling. An [Account] supplies the provider
// credential and the path roots the completion pipeline writes under.
package models
