// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import "errors"

var (
	// ErrInvalidStage is returned when a stage lacks a matcher or resolver.
	ErrInvalidStage = errors.New("stage requires a matcher and a resolver")

	// ErrInvalidOption is returned when a pipeline option has an invalid value.
	ErrInvalidOption = errors.New("invalid pipeline option")

	// ErrStageAborted is returned when a stage hits a data-integrity failure.
	// Nothing from the aborted stage is committed.
	ErrStageAborted = errors.New("stage aborted")
)
