// Package cache provides caching for immutable blocks read from segment
// files.
//
// Term dictionaries read the same few blocks over and over: the root block of
// every field and the blocks of popular prefixes. Readers put verified term
// blocks, decompressed suffixes and postings into a BlockCache keyed by
// segment, field and file offset.
//
// LRUBlockCache is a single-mutex LRU bounded in bytes. ShardedLRUBlockCache
// spreads keys over independently locked shards for concurrent readers. Both
// account cached bytes against an optional resource.Controller and skip
// caching when its memory limit is reached.
//
// DiskBlockCache keeps blocks in files under a local directory and survives
// restarts. TieredBlockCache puts a memory cache in front of it.
package cache
