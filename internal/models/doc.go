// Package models defines the core domain models for tabsplit.
//
// # Models
//
//   - Group: a set of members who share bills and record settlements
//   - Member: a person inside one group, identified by a group-scoped ID
//   - Bill: a shared expense with contributions (who paid) and splits (who owes)
//   - Settlement: a repayment between two members outside of any bill
//   - SplitEvent: audit row written every time a split is marked or unmarked paid
//   - User: the account that owns groups
//   - Reminder: a daily payment reminder for one member on one bill
//
// # Design Principles
//
//  1. **IDs over pointers**: relationships are ID strings, never back-pointers
//  2. **Raw numbers**: amounts are float64 in the group's currency; formatting
//     belongs to pkg/currency
//  3. **Tax-inclusive shares**: Split.Share always includes the bill's tax
package models
