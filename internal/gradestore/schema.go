package gradestore

const Schema = `
create table if not exists grade_snapshot (
	id integer primary key autoincrement,
	course text not null,
	column_name text not null,
	grade text not null,
	time integer not null
);

create index if not exists grade_snapshot_course_time
	on grade_snapshot (course, time);
`
