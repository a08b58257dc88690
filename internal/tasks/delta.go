package tasks

import (
	"github.com/cloudmirror/sharesync/internal/filters"
	"github.com/cloudmirror/sharesync/internal/services"
	"github.com/cloudmirror/sharesync/internal/shared"
)

// Harmonized is the subset of the harmonized-content filter the engine
// consults and feeds.
type Harmonized interface {
	Add(hash string) error
	MayContain(hash string) bool
}

// DeltaOptions configures one delta computation.
type DeltaOptions struct {
	OnlyMedia     bool
	MediaSuffixes []string
	Rule          *filters.MatchRule // nil means no deterministic rule
	Harmonized    Harmonized         // nil means no harmonized pre-filter
}

// ComputeDelta returns the remote files that are candidates for transfer: not
// yet present in the destination by content hash or by display name, passing
// the media-suffix allow-list and the match rule, and not flagged harmonized.
//
// Folders never transfer; listings carry them separately so only remote.Files
// is considered. The computation is a pure set difference; candidate order
// follows the remote listing order.
func ComputeDelta(remote, dest *services.Listing, opts DeltaOptions) []services.RemoteFile {
	if remote == nil {
		return nil
	}

	hashes := make(map[string]struct{})
	names := make(map[string]struct{})
	if dest != nil {
		for _, file := range dest.Files {
			if file.Hash != "" {
				hashes[file.Hash] = struct{}{}
			}
			// Name membership is the fallback for provider responses that
			// omit content hashes.
			names[shared.NormalizeFileName(file.Name)] = struct{}{}
		}
	}

	var candidates []services.RemoteFile
	for _, file := range remote.Files {
		if file.Hash != "" {
			if _, saved := hashes[file.Hash]; saved {
				continue
			}
		}
		if _, saved := names[shared.NormalizeFileName(file.Name)]; saved {
			continue
		}
		if opts.OnlyMedia && !shared.MediaSuffixMatch(file.Name, opts.MediaSuffixes) {
			continue
		}
		if opts.Rule != nil && !opts.Rule.Keep(file.Name) {
			continue
		}
		if opts.Harmonized != nil && file.Hash != "" && opts.Harmonized.MayContain(file.Hash) {
			continue
		}
		candidates = append(candidates, file)
	}

	return candidates
}
