// Package lock implements resource-level Two-Phase Locking (2PL) for the
// schedule simulator.
//
// # Overview
//
// Each transaction acquires locks during its growing phase. The first release
// moves it into the shrinking phase, after which any request for a lock it
// does not already hold is a protocol violation. Commit and abort release
// everything.
//
// Two lock modes are supported:
//
//   - [SharedLock]: required to read; compatible with other shared locks.
//   - [ExclusiveLock]: required to write; incompatible with all other locks.
//
// A shared holder may upgrade to exclusive when it is the only holder.
//
// # Components
//
// [LockManager] is the single public entry point. Internally it coordinates:
//
//   - [LockTable]: dual index of resource → locks and transaction → resources.
//   - [WaitQueue]: per-resource FIFO of parked [LockRequest] entries.
//   - [DependencyGraph]: wait-for graph; an edge A→B means A waits for B.
//   - [LockGrantor]: compatibility rules and the grant/upgrade actions.
//
// # Simulation, not suspension
//
// [LockManager.Acquire] never sleeps. A request that cannot be granted is
// parked, wait-for edges are recorded, and [Blocked] is returned. The caller
// runs [LockManager.FindDeadlock] after every block and retries blocked
// transactions after every release. Cycle detection visits ids in ascending
// order, so the chosen victim (the highest id in the cycle) is reproducible.
package lock
