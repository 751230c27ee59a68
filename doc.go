// Package flume is an in-process asynchronous stream-processing runtime
// built on composable channels and single-resolution results. Every stream
// operator consumes through the same bridging protocol, so delivery order,
// exclusive claims and error propagation behave identically across the
// whole operator family.
//
// # Quick Start
//
//	// Create, transform, consume
//	in := flume.FromValues(1, 2, 3, 4)
//	evens := flume.Filter(in, func(i int) bool { return i%2 == 0 })
//	doubled := flume.Transform(evens, func(i int) int { return i * 2 })
//	values, _ := flume.ToSlice(doubled)
//
// # Categories
//
// Core: [Channel], [Result], [Lock]
//
// Bridging: [BridgeInOrder], [Join], [Siphon]
//
// Ordered transforms: [Take], [TakeWhile], [Drop], [DropWhile],
// [Partition], [PartitionAll], [Reduce], [Reductions], [Transform], [Filter]
//
// Fan-in: [MergeChannels], [ZipAll], [Zip], [CombineLatest]
//
// Fan-out: [Distribute], [Channel.Fork], [Channel.Tap]
//
// Aggregation: [Aggregate], [DistributeAggregate], [Sample]
//
// For resumable staged computations that suspend on pending results, see
// the pipeline package. The graph package holds the propagation nodes and
// exclusive-consumption claims the bridges are built on.
package flume
