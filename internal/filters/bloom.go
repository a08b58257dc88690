// package filters implements the two admission filters consulted during delta
// computation: the harmonized-content bloom filter and the per-task match rule.
package filters

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/charmbracelet/log"
)

const (
	defaultBits      = 1 << 20
	defaultHashCount = 7
)

// HarmonizedFilter is a bloom filter over content hashes the provider is known
// to reject. Entries are append-only: once a hash is harmonized it stays
// flagged for the life of the backing file.
//
// False positives are possible (a never-added hash may test true), false
// negatives are not.
type HarmonizedFilter struct {
	mu        sync.Mutex
	bits      *bitset.BitSet
	hashCount int
	path      string
	logger    *log.Logger
}

// NewHarmonizedFilter creates a filter with the given bit-array size and hash
// count, reloading any previously persisted hashes from path. A missing
// backing file is not an error; it is created on first Add.
func NewHarmonizedFilter(path string, bits uint, hashCount int, logger *log.Logger) (*HarmonizedFilter, error) {
	if bits == 0 {
		bits = defaultBits
	}
	if hashCount <= 0 {
		hashCount = defaultHashCount
	}

	f := &HarmonizedFilter{
		bits:      bitset.New(bits),
		hashCount: hashCount,
		path:      path,
		logger:    logger,
	}

	if err := f.load(); err != nil {
		return nil, err
	}

	return f, nil
}

// load replays the persisted hash list into the bit array.
func (f *HarmonizedFilter) load() error {
	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open harmonized list: %w", err)
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		hash := strings.TrimSpace(scanner.Text())
		if hash == "" {
			continue
		}
		f.setBits(hash)
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read harmonized list: %w", err)
	}

	if f.logger != nil && count > 0 {
		f.logger.Info("loaded harmonized filter", "path", f.path, "entries", count)
	}
	return nil
}

// indexes derives the bit positions for a hash: hashCount independently
// salted SHA-256 digests folded into the bit-array range.
func (f *HarmonizedFilter) indexes(hash string) []uint {
	positions := make([]uint, f.hashCount)
	for i := 0; i < f.hashCount; i++ {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", i, hash)))
		positions[i] = uint(binary.BigEndian.Uint64(sum[:8]) % uint64(f.bits.Len()))
	}
	return positions
}

func (f *HarmonizedFilter) setBits(hash string) {
	for _, pos := range f.indexes(hash) {
		f.bits.Set(pos)
	}
}

// Add flags a content hash as harmonized and appends it to the backing file.
// The file write is serialized so concurrent task runs cannot interleave lines.
func (f *HarmonizedFilter) Add(hash string) error {
	if hash == "" {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.setBits(hash)

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open harmonized list for append: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintln(file, hash); err != nil {
		return fmt.Errorf("failed to append harmonized hash: %w", err)
	}

	return nil
}

// MayContain reports whether hash was possibly added before. A false result
// is definitive; a true result may be a false positive.
func (f *HarmonizedFilter) MayContain(hash string) bool {
	if hash == "" {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, pos := range f.indexes(hash) {
		if !f.bits.Test(pos) {
			return false
		}
	}
	return true
}

// Count returns the number of persisted entries by rescanning the backing
// file. Used by the CLI status surface, not by the hot path.
func (f *HarmonizedFilter) Count() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open harmonized list: %w", err)
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	return count, scanner.Err()
}
