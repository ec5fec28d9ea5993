/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"github.com/tomoncle/usersdb/database"
	"github.com/uptrace/bun"
)

const UsersTable = "users"

// Column limits of the users table.
const (
	// UserIDMaxLen is as declared; three characters is likely too small for
	// real identifiers.
	UserIDMaxLen   = 3
	UsernameMaxLen = 255
	PasswordMaxLen = 255
	RoleMaxLen     = 10
)

// User is a row of the users table. Empty strings are written as NULL, so a
// User with a blank field is rejected by the NOT NULL constraints.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       string `bun:"id,pk,notnull,nullzero,type:varchar(3)" json:"id"`
	Username string `bun:"username,notnull,nullzero,type:varchar(255)" json:"username"`
	Password string `bun:"password,notnull,nullzero,type:varchar(255)" json:"-"`
	Role     string `bun:"role,notnull,nullzero,type:varchar(10)" json:"role"`
}

func init() {
	database.RegisteredModel(database.NewModelAdapter((*User)(nil), 0))
}
