package bpe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/punjabi-nlp/bpetok/internal/bytestream"
)

//go:generate go tool mockgen -source=trainer.go -destination=observer_mock_test.go -package=bpe

// Default training configuration.
const (
	DefaultMaxVocabSize = 5000
	DefaultSampleSize   = 20000
)

// progressLogInterval is how often (in merges) training progress is logged.
const progressLogInterval = 100

// TrainOptions configures a Trainer.
type TrainOptions struct {
	// MaxVocabSize is the target vocabulary size, including the 256 byte ids.
	MaxVocabSize int
	// SampleSize truncates the corpus to its first SampleSize characters.
	// Zero or negative trains on the whole corpus.
	SampleSize int
	// Observer, if set, is notified after every merge.
	Observer Observer
}

// DefaultTrainOptions returns the options used when nothing is configured.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		MaxVocabSize: DefaultMaxVocabSize,
		SampleSize:   DefaultSampleSize,
	}
}

// MergeEvent describes one learned merge.
type MergeEvent struct {
	// Index is the 0-based merge number.
	Index int
	// Total is the merge budget (MaxVocabSize - 256).
	Total int
	Merge Merge
	// Count is the frequency of the pair when it was selected.
	Count int
	// SequenceLen is the working sequence length after the merge.
	SequenceLen int
}

// Observer receives training progress.
type Observer interface {
	OnMerge(ev MergeEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev MergeEvent)

func (f ObserverFunc) OnMerge(ev MergeEvent) { f(ev) }

// Summary describes a finished training run.
type Summary struct {
	InputChars   int
	InputBytes   int
	OutputTokens int
	Merges       int
	VocabSize    int
	// Exhausted is true when training stopped before the merge budget
	// because no adjacent pairs were left.
	Exhausted bool
}

// CompressionRatio is input bytes per output token.
func (s Summary) CompressionRatio() float64 {
	if s.OutputTokens == 0 {
		return 0
	}
	return float64(s.InputBytes) / float64(s.OutputTokens)
}

// Trainer learns merge tables. A Trainer holds configuration only; every call
// to Train builds fresh state, so one Trainer can be reused.
type Trainer struct {
	opts TrainOptions
}

// NewTrainer validates opts and returns a Trainer.
func NewTrainer(opts TrainOptions) (*Trainer, error) {
	if opts.MaxVocabSize < bytestream.NumBytes {
		return nil, fmt.Errorf("%w: max vocab size %d is below the %d byte tokens", ErrInvalidConfig, opts.MaxVocabSize, bytestream.NumBytes)
	}
	if int64(opts.MaxVocabSize) > int64(^TokenID(0)) {
		return nil, fmt.Errorf("%w: max vocab size %d does not fit a token id", ErrInvalidConfig, opts.MaxVocabSize)
	}
	return &Trainer{opts: opts}, nil
}

// Train is shorthand for NewTrainer(opts) followed by Trainer.Train.
func Train(ctx context.Context, corpus string, opts TrainOptions) (*Tokenizer, error) {
	tr, err := NewTrainer(opts)
	if err != nil {
		return nil, err
	}
	tok, _, err := tr.Train(ctx, corpus)
	return tok, err
}

// Train greedily merges the most frequent adjacent pair of the (sampled)
// corpus until the vocabulary reaches MaxVocabSize or no pairs are left.
// An empty corpus yields the 256 byte tokens and no merges.
func (tr *Trainer) Train(ctx context.Context, corpus string) (*Tokenizer, Summary, error) {
	sample := bytestream.Prefix(corpus, tr.opts.SampleSize)
	ids := bytestream.ToIDs(sample)

	summary := Summary{
		InputChars: len([]rune(sample)),
		InputBytes: len(ids),
	}
	budget := tr.opts.MaxVocabSize - bytestream.NumBytes

	slog.Debug("Starting BPE training", "bytes", len(ids), "merges", budget)

	b := &builder{
		vocab:  newBaseVocabulary(),
		merges: newMergeTable(),
	}
	for i := 0; i < budget; i++ {
		if err := ctx.Err(); err != nil {
			return nil, Summary{}, fmt.Errorf("training stopped after %d merges: %w", i, err)
		}

		best, count, ok := CountPairs(ids).MostFrequent()
		if !ok {
			summary.Exhausted = true
			slog.Debug("No pairs left to merge", "merges", i)
			break
		}

		id := b.add(best)
		ids = mergePair(ids, best, id)

		if tr.opts.Observer != nil {
			tr.opts.Observer.OnMerge(MergeEvent{
				Index:       i,
				Total:       budget,
				Merge:       Merge{Pair: best, ID: id},
				Count:       count,
				SequenceLen: len(ids),
			})
		}
		if (i+1)%progressLogInterval == 0 {
			slog.Debug("Processed merges", "done", i+1, "total", budget, "seqLen", len(ids))
		}
	}

	tok := b.build()
	summary.OutputTokens = len(ids)
	summary.Merges = tok.NumMerges()
	summary.VocabSize = tok.VocabSize()

	slog.Debug("BPE training complete",
		"vocabSize", summary.VocabSize,
		"merges", summary.Merges,
		"compression", fmt.Sprintf("%.2fX", summary.CompressionRatio()))

	return tok, summary, nil
}

// builder accumulates the vocabulary and merge table of one training run.
type builder struct {
	vocab  *Vocabulary
	merges *MergeTable
}

func (b *builder) add(p Pair) TokenID {
	id := b.vocab.appendMerge(p)
	b.merges.add(p, id)
	return id
}

func (b *builder) build() *Tokenizer {
	return newTokenizer(b.vocab, b.merges)
}
