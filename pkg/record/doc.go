// Package record provides a base model and generic CRUD store for GORM-backed
// applications.
//
// Embed BaseModel into a model struct to pick up the common columns (id,
// token, created_at, updated_at, is_active), then wrap the model in a Store
// for lookup, listing, save, bulk save, partial update and soft/hard delete:
//
//	type User struct {
//	    record.BaseModel
//	    Email string `gorm:"size:120;uniqueIndex;not null"`
//	    Name  string `gorm:"size:80"`
//	}
//
//	users := record.NewStore[User, *User](db)
//	u := &User{Email: "a@b.c", Name: "Ada"}
//	if err := users.Save(ctx, u); err != nil { ... }
//	got, err := users.GetByToken(ctx, u.Token)
//
// All persistence, transactions and pooling are GORM's; the package only
// removes the per-model boilerplate around it.
package record
